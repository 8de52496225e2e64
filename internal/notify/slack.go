package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// alertColor is the attachment side-bar colour.
const alertColor = "#36a64f"

// SlackWebhook posts messages to a Slack incoming webhook.
type SlackWebhook struct {
	url  string
	post func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackWebhook returns a notifier for the given incoming-webhook URL.
func NewSlackWebhook(url string) *SlackWebhook {
	return &SlackWebhook{url: url, post: slack.PostWebhookContext}
}

// Notify implements Notifier.
func (s *SlackWebhook) Notify(ctx context.Context, msg Message) error {
	att := slack.Attachment{
		Color: alertColor,
		Title: msg.Title(),
		Text:  msg.Text(),
	}
	for _, f := range msg.Fields() {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: true})
	}
	hook := &slack.WebhookMessage{
		Text:        msg.Title(),
		Attachments: []slack.Attachment{att},
	}
	if err := s.post(ctx, s.url, hook); err != nil {
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	return nil
}
