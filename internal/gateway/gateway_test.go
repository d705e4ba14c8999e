package gateway

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/agent"
	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/providers"
	"github.com/superhq-ai/neko/internal/sessions"
	"github.com/superhq-ai/neko/internal/tools"
)

type fakeProvider struct {
	text string
}

func (p *fakeProvider) Respond(_ context.Context, _ providers.Request) (*providers.Response, error) {
	return &providers.Response{
		ID:     "resp-1",
		Status: providers.StatusCompleted,
		Output: []providers.Item{providers.Message{Role: providers.RoleAssistant, Content: p.text}},
	}, nil
}
func (p *fakeProvider) Name() string         { return "fake" }
func (p *fakeProvider) DefaultModel() string { return "test-model" }

func newTestGateway(t *testing.T, replyText string) *Gateway {
	t.Helper()
	dir := t.TempDir()
	store := sessions.New(dir, sessions.Policy{Mode: sessions.ResetDaily, ResetAtHour: 4}, slog.Default())
	a := agent.New(&fakeProvider{text: replyText}, tools.NewRegistry(), config.AgentConfig{MaxIterations: 3}, dir, nil, nil)
	return New(a, store, sessions.DMScopeMain, nil)
}

func TestHandleMessage_RoutesThroughAgentAndPersists(t *testing.T) {
	g := newTestGateway(t, "hello there")

	out, err := g.HandleMessage(context.Background(), InboundMessage{
		Channel: "telegram", SenderID: "user-1", Text: "hi", ReplyTo: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", out.Text)
	require.Equal(t, "telegram", out.Channel)
	require.Equal(t, "user-1", out.RecipientID)

	metas := g.Sessions.List()
	require.Len(t, metas, 1)
	require.Equal(t, sessions.MainKey, metas[0].Key)
	require.Equal(t, 1, metas[0].TurnCount)
}

func TestHandleMessage_ResetCommandSkipsAgent(t *testing.T) {
	g := newTestGateway(t, "should not be called")

	_, err := g.HandleMessage(context.Background(), InboundMessage{Channel: "telegram", SenderID: "u1", Text: "hi"})
	require.NoError(t, err)

	out, err := g.HandleMessage(context.Background(), InboundMessage{Channel: "telegram", SenderID: "u1", Text: "/reset"})
	require.NoError(t, err)
	require.Equal(t, resetConfirmation, out.Text)

	metas := g.Sessions.List()
	require.Equal(t, 0, metas[0].TurnCount)
}

func TestHandleHTTPMessage_CreatesDefaultSessionWithoutSenderID(t *testing.T) {
	g := newTestGateway(t, "ok")

	text, sid, err := g.HandleHTTPMessage(context.Background(), "hi", "", "")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.NotEmpty(t, sid)
	require.True(t, g.Sessions.Exists(sid))
}

func TestHandleMessageWithSession_UnknownSessionErrors(t *testing.T) {
	g := newTestGateway(t, "ok")
	_, err := g.HandleMessageWithSession(context.Background(), "nonexistent", "hi")
	require.Error(t, err)
}

func TestHandleMessageWithSession_ReusesExplicitSession(t *testing.T) {
	g := newTestGateway(t, "ok")
	sid, err := g.Sessions.GetOrCreate("neko:main", "telegram", "")
	require.NoError(t, err)

	text, err := g.HandleMessageWithSession(context.Background(), sid, "hi")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
}
