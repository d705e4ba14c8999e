// Package channels connects external messaging platforms to the gateway
// (spec.md §4.3, §5): each adapter turns platform-specific events into
// gateway.InboundMessage and delivers gateway.OutboundMessage back out.
//
// Grounded on original_source/src/channels/mod.rs's Channel trait.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/superhq-ai/neko/internal/gateway"
)

// outboundRateLimit caps each channel adapter to this many sent messages per
// second, with a small burst allowance — protects a channel's own API rate
// limits (Telegram/Discord both throttle per-bot) from a burst of cron
// announcements or rapid-fire agent replies.
const outboundRateLimit rate.Limit = 10
const outboundBurst = 5

// Channel is one platform adapter (Telegram, Discord, ...). Start must
// return once the adapter is listening; it runs its receive loop in its own
// goroutines and delivers messages on inbound until ctx is cancelled or Stop
// is called. Send on outbound is drained for this channel's name only.
type Channel interface {
	Name() string
	Start(ctx context.Context, inbound chan<- gateway.InboundMessage) error
	Send(ctx context.Context, out gateway.OutboundMessage) error
	Stop(ctx context.Context) error
}

// Manager owns the set of registered channels and the dispatch loop that
// fans gateway replies back out to the originating adapter (spec.md §5: the
// gateway spawns a detached task per inbound message so no channel's
// receive loop ever blocks on agent work).
type Manager struct {
	gw       *gateway.Gateway
	channels map[string]Channel
	limiters map[string]*rate.Limiter
	inbound  chan gateway.InboundMessage
	log      *slog.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a Manager that routes inbound messages through gw.
func NewManager(gw *gateway.Gateway, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		gw:       gw,
		channels: make(map[string]Channel),
		limiters: make(map[string]*rate.Limiter),
		inbound:  make(chan gateway.InboundMessage, 64),
		log:      log,
	}
}

// Register adds a channel adapter and its outbound rate limiter. Call
// before Start.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
	m.limiters[ch.Name()] = rate.NewLimiter(outboundRateLimit, outboundBurst)
}

// Start starts every registered adapter and the inbound dispatch loop. It
// returns once all adapters have started; adapters keep running in the
// background until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	channels := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.dispatchInbound(runCtx)

	for _, ch := range channels {
		if err := ch.Start(runCtx, m.inbound); err != nil {
			m.log.Error("channel failed to start", "channel", ch.Name(), "error", err)
			continue
		}
		m.log.Info("channel started", "channel", ch.Name())
	}
	return nil
}

// Stop cancels the dispatch loop and stops every registered adapter.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	channels := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	for _, ch := range channels {
		if err := ch.Stop(ctx); err != nil {
			m.log.Error("channel failed to stop", "channel", ch.Name(), "error", err)
		}
	}
	return nil
}

// SendTo delivers an outbound message directly to a named channel, bypassing
// the inbound dispatch loop — used by the scheduler's cron announcements
// (spec.md §4.5), whose target channel is not tied to any in-flight turn.
func (m *Manager) SendTo(ctx context.Context, channelName string, out gateway.OutboundMessage) error {
	m.mu.RLock()
	ch, ok := m.channels[channelName]
	limiter := m.limiters[channelName]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("channel %q not registered", channelName)
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait for channel %q: %w", channelName, err)
		}
	}
	return ch.Send(ctx, out)
}

// dispatchInbound reads every inbound message and spawns a detached
// goroutine per message to run it through the gateway, so a slow turn never
// stalls an adapter's receive loop or a sibling message (spec.md §5).
func (m *Manager) dispatchInbound(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.inbound:
			if !ok {
				return
			}
			go m.handle(ctx, msg)
		}
	}
}

func (m *Manager) handle(ctx context.Context, msg gateway.InboundMessage) {
	out, err := m.gw.HandleMessage(ctx, msg)
	if err != nil {
		m.log.Error("gateway handle message failed", "channel", msg.Channel, "error", err)
		return
	}
	if out == nil || out.Text == "" {
		return
	}

	m.mu.RLock()
	ch, ok := m.channels[out.Channel]
	limiter := m.limiters[out.Channel]
	m.mu.RUnlock()
	if !ok {
		m.log.Warn("no channel registered for outbound message", "channel", out.Channel)
		return
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			m.log.Warn("rate limit wait cancelled", "channel", out.Channel, "error", err)
			return
		}
	}
	if err := ch.Send(ctx, *out); err != nil {
		m.log.Error("channel send failed", "channel", out.Channel, "error", err)
	}
}
