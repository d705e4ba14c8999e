package channels

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/gateway"
	"github.com/superhq-ai/neko/internal/tools"
)

// Discord is a gateway-event Discord adapter. original_source has no
// Discord channel (Telegram-only) — this is a supplemented feature wiring
// bwmarrin/discordgo, the Discord stack the rest of the example corpus
// carries.
//
// Grounded on _examples/vanducng-goclaw/internal/channels/discord/discord.go.
type Discord struct {
	session      *discordgo.Session
	allowedUsers map[string]bool
	botUserID    string
	log          *slog.Logger
}

// NewDiscord builds a Discord adapter from config.
func NewDiscord(cfg config.DiscordConfig, log *slog.Logger) (*Discord, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	allowed := make(map[string]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}

	return &Discord{session: session, allowedUsers: allowed, log: log}, nil
}

func (d *Discord) Name() string { return "discord" }

// Start opens the Discord gateway connection and registers the message
// handler; events are delivered asynchronously by discordgo's own
// goroutines for the lifetime of the session.
func (d *Discord) Start(_ context.Context, inbound chan<- gateway.InboundMessage) error {
	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(m, inbound)
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := d.session.User("@me")
	if err != nil {
		d.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	d.botUserID = user.ID
	d.log.Info("discord bot connected", "username", user.Username, "id", user.ID)
	return nil
}

func (d *Discord) handleMessage(m *discordgo.MessageCreate, inbound chan<- gateway.InboundMessage) {
	if m.Author == nil || m.Author.ID == d.botUserID || m.Author.Bot {
		return
	}

	senderID := m.Author.ID
	if len(d.allowedUsers) > 0 && !d.allowedUsers[senderID] {
		d.log.Debug("discord message rejected: user not allowed", "user_id", senderID)
		return
	}

	isDM := m.GuildID == ""
	content := m.Content
	for _, att := range m.Attachments {
		if content != "" {
			content += "\n"
		}
		content += fmt.Sprintf("[attachment: %s]", att.URL)
	}

	inbound <- gateway.InboundMessage{
		Channel:     d.Name(),
		SenderID:    senderID,
		IsGroup:     !isDM,
		GroupID:     m.GuildID,
		DisplayName: m.Author.Username,
		ReplyTo:     m.ChannelID,
		Text:        content,
	}
}

// Send delivers a reply, and any attachments, to a Discord channel.
func (d *Discord) Send(_ context.Context, out gateway.OutboundMessage) error {
	if out.RecipientID == "" {
		return fmt.Errorf("empty discord channel id for outbound message")
	}

	if out.Text != "" {
		if _, err := d.session.ChannelMessageSend(out.RecipientID, out.Text); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}

	for _, att := range out.Attachments {
		if err := d.sendAttachment(out.RecipientID, att); err != nil {
			d.log.Warn("discord attachment send failed", "path", att.Path, "error", err)
		}
	}
	return nil
}

func (d *Discord) sendAttachment(channelID string, att tools.Attachment) error {
	f, err := os.Open(att.Path)
	if err != nil {
		return fmt.Errorf("open attachment %q: %w", att.Path, err)
	}
	defer f.Close()

	_, err = d.session.ChannelFileSend(channelID, att.Path, f)
	return err
}

// Stop closes the Discord gateway connection.
func (d *Discord) Stop(_ context.Context) error {
	return d.session.Close()
}
