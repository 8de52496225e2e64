package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// embedColor is the Discord embed colour (#36a64f).
const embedColor = 0x36a64f

// webhookExecutor abstracts the discordgo.Session method we use, enabling
// test mocks.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordWebhook posts messages to a Discord channel webhook.
type DiscordWebhook struct {
	id    string
	token string
	exec  webhookExecutor
}

// NewDiscordWebhook returns a notifier for the given webhook id and token.
func NewDiscordWebhook(id, token string) (*DiscordWebhook, error) {
	if id == "" || token == "" {
		return nil, fmt.Errorf("notify: discord webhook id and token are required")
	}
	// Webhook execution is authorised by the token in the URL, so the
	// session carries no bot token.
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordWebhook{id: id, token: token, exec: sess}, nil
}

// Notify implements Notifier.
func (d *DiscordWebhook) Notify(ctx context.Context, msg Message) error {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title(),
		Description: msg.Text(),
		Color:       embedColor,
	}
	for _, f := range msg.Fields() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
	if _, err := d.exec.WebhookExecute(d.id, d.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("notify: discord webhook: %w", err)
	}
	return nil
}
