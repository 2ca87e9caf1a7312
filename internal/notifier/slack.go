package notifier

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackDestination posts to a configured Slack incoming webhook.
type SlackDestination struct {
	webhookURL string
}

// NewSlackDestination returns nil if webhookURL is empty, so callers can
// always append the result and rely on a nil check at wiring time rather
// than threading "is configured" booleans through the operator.
func NewSlackDestination(webhookURL string) *SlackDestination {
	if webhookURL == "" {
		return nil
	}
	return &SlackDestination{webhookURL: webhookURL}
}

func (s *SlackDestination) Name() string { return "slack" }

func (s *SlackDestination) Send(ctx context.Context, content string) error {
	return slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{Text: content})
}
