package channels

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/gateway"
	"github.com/superhq-ai/neko/internal/tools"
)

// Telegram is a long-polling Telegram Bot API adapter (spec.md §4.3 channel
// adapters).
//
// Grounded on original_source/src/channels/telegram.rs's long-poll loop
// (offset tracking, allowed-user filtering, group/DM detection) ported onto
// the teacher's mymmrac/telego client
// (_examples/vanducng-goclaw/internal/channels/telegram/channel.go).
type Telegram struct {
	bot          *telego.Bot
	allowedUsers map[int64]bool
	log          *slog.Logger

	cancel   context.CancelFunc
	pollDone chan struct{}
}

// NewTelegram builds a Telegram adapter from config. The bot token is
// required; an empty AllowedUsers list accepts every sender.
func NewTelegram(cfg config.TelegramConfig, log *slog.Logger) (*Telegram, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	allowed := make(map[int64]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}

	return &Telegram{bot: bot, allowedUsers: allowed, log: log}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Start begins long polling for updates and forwards accepted messages to
// inbound. It returns once polling has been established; the receive loop
// runs in a background goroutine until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, inbound chan<- gateway.InboundMessage) error {
	pollCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.pollDone = make(chan struct{})

	updates, err := t.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start telegram long polling: %w", err)
	}

	go func() {
		defer close(t.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					t.handleMessage(update.Message, inbound)
				}
			}
		}
	}()

	return nil
}

func (t *Telegram) handleMessage(message *telego.Message, inbound chan<- gateway.InboundMessage) {
	if message.From == nil || message.Text == "" {
		return
	}

	userID := message.From.ID
	if len(t.allowedUsers) > 0 && !t.allowedUsers[userID] {
		t.log.Debug("telegram message rejected: user not allowed", "user_id", userID)
		return
	}

	isGroup := message.Chat.Type == "group" || message.Chat.Type == "supergroup"
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	senderID := strconv.FormatInt(userID, 10)

	displayName := message.From.FirstName
	if message.From.Username != "" {
		displayName = message.From.Username
	}

	inbound <- gateway.InboundMessage{
		Channel:     t.Name(),
		SenderID:    senderID,
		IsGroup:     isGroup,
		GroupID:     chatID,
		DisplayName: displayName,
		ReplyTo:     chatID,
		Text:        strings.TrimSpace(message.Text),
	}
}

// Send delivers a reply, and any attachments, to a Telegram chat.
func (t *Telegram) Send(ctx context.Context, out gateway.OutboundMessage) error {
	chatID, err := strconv.ParseInt(out.RecipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", out.RecipientID, err)
	}

	if out.Text != "" {
		if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), out.Text)); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}

	for _, att := range out.Attachments {
		if err := t.sendAttachment(ctx, chatID, att); err != nil {
			t.log.Warn("telegram attachment send failed", "path", att.Path, "error", err)
		}
	}
	return nil
}

func (t *Telegram) sendAttachment(ctx context.Context, chatID int64, att tools.Attachment) error {
	f, err := os.Open(att.Path)
	if err != nil {
		return fmt.Errorf("open attachment %q: %w", att.Path, err)
	}
	defer f.Close()

	_, err = t.bot.SendDocument(ctx, tu.Document(tu.ID(chatID), tu.File(f)))
	return err
}

// Stop cancels long polling and waits for the receive loop to exit.
func (t *Telegram) Stop(_ context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.pollDone != nil {
		<-t.pollDone
	}
	return nil
}
