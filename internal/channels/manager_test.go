package channels

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/agent"
	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/gateway"
	"github.com/superhq-ai/neko/internal/providers"
	"github.com/superhq-ai/neko/internal/sessions"
	"github.com/superhq-ai/neko/internal/tools"
)

type fakeProvider struct{ text string }

func (p *fakeProvider) Respond(_ context.Context, _ providers.Request) (*providers.Response, error) {
	return &providers.Response{
		ID:     "resp-1",
		Status: providers.StatusCompleted,
		Output: []providers.Item{providers.Message{Role: providers.RoleAssistant, Content: p.text}},
	}, nil
}
func (p *fakeProvider) Name() string         { return "fake" }
func (p *fakeProvider) DefaultModel() string { return "test-model" }

type fakeChannel struct {
	name string

	mu   sync.Mutex
	sent []gateway.OutboundMessage
	done chan struct{}
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, done: make(chan struct{}, 16)}
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Start(_ context.Context, _ chan<- gateway.InboundMessage) error { return nil }

func (f *fakeChannel) Send(_ context.Context, out gateway.OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, out)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeChannel) Stop(_ context.Context) error { return nil }

func (f *fakeChannel) waitForSend(t *testing.T) gateway.OutboundMessage {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel send")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newTestGateway(t *testing.T, replyText string) *gateway.Gateway {
	t.Helper()
	dir := t.TempDir()
	store := sessions.New(dir, sessions.Policy{Mode: sessions.ResetDaily, ResetAtHour: 4}, slog.Default())
	a := agent.New(&fakeProvider{text: replyText}, tools.NewRegistry(), config.AgentConfig{MaxIterations: 3}, dir, nil, nil)
	return gateway.New(a, store, sessions.DMScopeMain, nil)
}

func TestManager_RoutesReplyBackToOriginatingChannel(t *testing.T) {
	gw := newTestGateway(t, "hello there")
	m := NewManager(gw, nil)

	ch := newFakeChannel("telegram")
	m.Register(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(context.Background())

	m.inbound <- gateway.InboundMessage{Channel: "telegram", SenderID: "u1", Text: "hi", ReplyTo: "u1"}

	out := ch.waitForSend(t)
	require.Equal(t, "hello there", out.Text)
	require.Equal(t, "u1", out.RecipientID)
}

func TestManager_UnknownOutboundChannelIsDropped(t *testing.T) {
	gw := newTestGateway(t, "ok")
	m := NewManager(gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop(context.Background())

	// No channel registered for "telegram" — handle() must log and return
	// without panicking.
	m.inbound <- gateway.InboundMessage{Channel: "telegram", SenderID: "u1", Text: "hi", ReplyTo: "u1"}
	time.Sleep(50 * time.Millisecond)
}

func TestManager_StopWaitsForDispatchLoop(t *testing.T) {
	gw := newTestGateway(t, "ok")
	m := NewManager(gw, nil)
	ch := newFakeChannel("telegram")
	m.Register(ch)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
}
