// Package gateway routes inbound channel/HTTP messages to the agent turn
// engine and back out (spec.md §4.3).
//
// Grounded on original_source/src/gateway.rs's Gateway/handle_message.
package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/superhq-ai/neko/internal/agent"
	"github.com/superhq-ai/neko/internal/neko"
	"github.com/superhq-ai/neko/internal/sessions"
	"github.com/superhq-ai/neko/internal/tools"
)

// InboundMessage is one message arriving from a channel adapter or the HTTP
// API (spec.md §3).
type InboundMessage struct {
	Channel     string
	SenderID    string
	IsGroup     bool
	GroupID     string
	DisplayName string
	ReplyTo     string
	Text        string
}

// OutboundMessage is the gateway's reply, addressed back to a channel
// (spec.md §3).
type OutboundMessage struct {
	Channel     string
	RecipientID string
	Text        string
	Attachments []tools.Attachment
}

const resetConfirmation = "Session reset. Starting fresh."

// Gateway wires the session store to the agent engine (spec.md §4.3).
type Gateway struct {
	Agent    *agent.Agent
	Sessions *sessions.Store
	DMScope  sessions.DMScope
	log      *slog.Logger
}

// New builds a Gateway.
func New(a *agent.Agent, store *sessions.Store, dmScope sessions.DMScope, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{Agent: a, Sessions: store, DMScope: dmScope, log: log}
}

// HandleMessage implements the core inbound → session → agent → outbound
// routing (spec.md §4.3 steps 1-6).
func (g *Gateway) HandleMessage(ctx context.Context, inbound InboundMessage) (*OutboundMessage, error) {
	text := strings.TrimSpace(inbound.Text)

	key := sessions.BuildKey(inbound.Channel, inbound.SenderID, inbound.IsGroup, inbound.GroupID, g.DMScope)
	sessionID, err := g.Sessions.GetOrCreate(key, inbound.Channel, inbound.DisplayName)
	if err != nil {
		return nil, err
	}

	if text == "/new" || text == "/reset" {
		if err := g.Sessions.Reset(sessionID); err != nil {
			return nil, err
		}
		return &OutboundMessage{Channel: inbound.Channel, RecipientID: inbound.ReplyTo, Text: resetConfirmation}, nil
	}

	if triggered, err := g.Sessions.CheckReset(sessionID); err != nil {
		return nil, err
	} else if triggered {
		g.log.Info("auto-reset triggered", "session_id", sessionID)
	}

	return g.runAndPersist(ctx, sessionID, text, &tools.ChannelContext{Channel: inbound.Channel, RecipientID: inbound.ReplyTo}, inbound.Channel, inbound.ReplyTo)
}

// HandleMessageWithSession runs a turn against an explicit, pre-resolved
// session id — used by the HTTP API when the caller supplies one (spec.md
// §4.3 HTTP-origin variant).
func (g *Gateway) HandleMessageWithSession(ctx context.Context, sessionID, text string) (string, error) {
	if !g.Sessions.Exists(sessionID) {
		return "", neko.New(neko.KindSession, "session not found: %s", sessionID)
	}
	out, err := g.runAndPersist(ctx, sessionID, text, nil, "", "")
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// HandleHTTPMessage handles a message from the HTTP API channel, creating a
// session under the HTTP default key when no session_id is supplied.
func (g *Gateway) HandleHTTPMessage(ctx context.Context, text, sessionID, senderID string) (string, string, error) {
	sid := sessionID
	if sid == "" {
		peer := senderID
		if peer == "" {
			peer = "http-default"
		}
		key := sessions.HTTPKey(peer)
		var err error
		sid, err = g.Sessions.GetOrCreate(key, "http", "")
		if err != nil {
			return "", "", err
		}
	} else if !g.Sessions.Exists(sid) {
		return "", "", neko.New(neko.KindSession, "session not found: %s", sid)
	}

	if _, err := g.Sessions.CheckReset(sid); err != nil {
		g.log.Warn("auto-reset check failed", "session_id", sid, "error", err)
	}

	recipient := senderID
	if recipient == "" {
		recipient = "http-default"
	}
	out, err := g.runAndPersist(ctx, sid, text, &tools.ChannelContext{Channel: "http", RecipientID: recipient}, "http", recipient)
	if err != nil {
		return "", "", err
	}
	return out.Text, sid, nil
}

func (g *Gateway) runAndPersist(ctx context.Context, sessionID, text string, channelCtx *tools.ChannelContext, outChannel, outRecipient string) (*OutboundMessage, error) {
	// Hold the session's turn mutex across get_history -> update_history so
	// concurrent messages to the same session serialize instead of racing
	// on the history snapshot (spec.md §5); different sessions still run
	// fully in parallel since each has its own turn mutex.
	unlock, err := g.Sessions.LockTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, prevResponseID, err := g.Sessions.GetHistory(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := g.Agent.RunTurnWithHistory(ctx, history, text, prevResponseID, channelCtx)
	if err != nil {
		return nil, err
	}

	if err := g.Sessions.UpdateHistory(sessionID, result.History, result.Usage, result.LastResponseID); err != nil {
		return nil, err
	}

	return &OutboundMessage{Channel: outChannel, RecipientID: outRecipient, Text: result.Text, Attachments: result.Attachments}, nil
}
