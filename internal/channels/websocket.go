package channels

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/gateway"
)

// WebSocket is a local full-duplex channel adapter for interactive dev
// clients — distinct from the Telegram/Discord bot adapters, it has no
// upstream platform of its own: it just accepts connections and relays one
// whole text message per frame in either direction. Grounded on
// _examples/vanducng-goclaw/internal/channels/zalo/personal/protocol/ws_client.go's
// coder/websocket usage, adapted from dialing out (client) to accepting
// connections (server), since this channel owns the listening side.
type WebSocket struct {
	bind string
	log  *slog.Logger

	srv *http.Server

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewWebSocket builds a WebSocket adapter from config.
func NewWebSocket(cfg config.WebSocketConfig, log *slog.Logger) *WebSocket {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocket{bind: cfg.Bind, log: log, conns: make(map[string]*websocket.Conn)}
}

func (w *WebSocket) Name() string { return "websocket" }

// Start binds a listener and accepts connections in the background until
// Stop is called. Each accepted connection gets its own read loop goroutine
// that feeds inbound until the client disconnects or ctx is cancelled.
func (w *WebSocket) Start(ctx context.Context, inbound chan<- gateway.InboundMessage) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		w.accept(ctx, rw, r, inbound)
	})
	w.srv = &http.Server{Addr: w.bind, Handler: mux}

	ln, err := net.Listen("tcp", w.bind)
	if err != nil {
		return fmt.Errorf("bind websocket listener: %w", err)
	}

	go func() {
		if err := w.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			w.log.Error("websocket server stopped", "error", err)
		}
	}()
	w.log.Info("websocket channel listening", "bind", w.bind)
	return nil
}

func (w *WebSocket) accept(ctx context.Context, rw http.ResponseWriter, r *http.Request, inbound chan<- gateway.InboundMessage) {
	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(1 << 20)

	connID := uuid.NewString()
	w.mu.Lock()
	w.conns[connID] = conn
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.conns, connID)
		w.mu.Unlock()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			conn.CloseNow()
			return
		}
		inbound <- gateway.InboundMessage{
			Channel:  w.Name(),
			SenderID: connID,
			ReplyTo:  connID,
			Text:     string(data),
		}
	}
}

// Send writes one whole reply as a single text frame to the connection that
// sent the originating message. Never streamed token-by-token.
func (w *WebSocket) Send(ctx context.Context, out gateway.OutboundMessage) error {
	w.mu.RLock()
	conn, ok := w.conns[out.RecipientID]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no active websocket connection %q", out.RecipientID)
	}
	return conn.Write(ctx, websocket.MessageText, []byte(out.Text))
}

// Stop closes every open connection and shuts down the listener.
func (w *WebSocket) Stop(ctx context.Context) error {
	w.mu.Lock()
	for id, conn := range w.conns {
		conn.Close(websocket.StatusNormalClosure, "server shutting down")
		delete(w.conns, id)
	}
	w.mu.Unlock()

	if w.srv == nil {
		return nil
	}
	return w.srv.Shutdown(ctx)
}
