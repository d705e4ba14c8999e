package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server exposes the gateway over HTTP: the health check, message submission,
// and session administration (spec.md §6).
//
// Grounded on original_source/src/api/mod.rs's axum router, ported onto
// plain net/http with http.ServeMux method-pattern routing (Go 1.22+) — the
// teacher's gateway package also hand-rolls its mux rather than pulling in a
// router framework.
type Server struct {
	gw       *Gateway
	apiToken string
	log      *slog.Logger
}

// NewServer builds an HTTP Server. apiToken == "" disables bearer auth.
func NewServer(gw *Gateway, apiToken string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{gw: gw, apiToken: apiToken, log: log}
}

// Handler builds the routed mux: /health is unauthenticated, everything else
// under /api/v1 requires the bearer token when one is configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/v1/message", s.handleMessage)
	protected.HandleFunc("GET /api/v1/sessions", s.handleListSessions)
	protected.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)

	mux.Handle("/api/v1/", s.authMiddleware(protected))
	return mux
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.apiToken {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}

type messageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

type messageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	text, sid, err := s.gw.HandleHTTPMessage(r.Context(), req.Text, req.SessionID, "")
	if err != nil {
		s.log.Error("handle http message failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Response: text, SessionID: sid})
}

type sessionListEntry struct {
	SessionID      string `json:"session_id"`
	Key            string `json:"key"`
	TurnCount      int    `json:"turn_count"`
	InputTokens    int64  `json:"input_tokens"`
	OutputTokens   int64  `json:"output_tokens"`
	UpdatedAt      string `json:"updated_at"`
	Channel        string `json:"channel,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
}

type sessionListResponse struct {
	Sessions []sessionListEntry `json:"sessions"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	metas := s.gw.Sessions.List()
	out := make([]sessionListEntry, 0, len(metas))
	for _, m := range metas {
		out = append(out, sessionListEntry{
			SessionID:    m.SessionID,
			Key:          m.Key,
			TurnCount:    m.TurnCount,
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
			UpdatedAt:    m.UpdatedAt.Format(timeRFC3339),
			Channel:      m.Channel,
			DisplayName:  m.DisplayName,
		})
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: out})
}

const timeRFC3339 = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.gw.Sessions.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
