package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleHealth_NoAuthRequired(t *testing.T) {
	srv := NewServer(newTestGateway(t, "hi"), "secret-token", nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestHandleMessage_RejectsMissingToken(t *testing.T) {
	srv := NewServer(newTestGateway(t, "hi"), "secret-token", nil)

	body, _ := json.Marshal(messageRequest{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMessage_SucceedsWithValidToken(t *testing.T) {
	srv := NewServer(newTestGateway(t, "hello back"), "secret-token", nil)

	body, _ := json.Marshal(messageRequest{Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hello back", resp.Response)
	require.NotEmpty(t, resp.SessionID)
}

func TestHandleMessage_NoAuthWhenTokenUnconfigured(t *testing.T) {
	srv := NewServer(newTestGateway(t, "ok"), "", nil)

	body, _ := json.Marshal(messageRequest{Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListSessions_ReturnsSessionsAfterMessage(t *testing.T) {
	gw := newTestGateway(t, "ok")
	srv := NewServer(gw, "", nil)

	_, _, err := gw.HandleHTTPMessage(context.Background(), "hi", "", "user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
}

func TestHandleDeleteSession_RemovesSession(t *testing.T) {
	gw := newTestGateway(t, "ok")
	srv := NewServer(gw, "", nil)

	_, sid, err := gw.HandleHTTPMessage(context.Background(), "hi", "", "user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sid, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, gw.Sessions.Exists(sid))
}
