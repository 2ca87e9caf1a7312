package notifier

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// DiscordDestination posts to a configured Discord webhook.
type DiscordDestination struct {
	webhookID, webhookToken string
}

// NewDiscordDestination parses a Discord webhook URL
// (".../api/webhooks/<id>/<token>") and returns nil if webhookURL is empty
// or malformed; see NewSlackDestination for why a nil return is used
// instead of an error here.
func NewDiscordDestination(webhookURL string) *DiscordDestination {
	if webhookURL == "" {
		return nil
	}
	parts := strings.Split(strings.TrimRight(webhookURL, "/"), "/")
	if len(parts) < 2 {
		return nil
	}
	id, token := parts[len(parts)-2], parts[len(parts)-1]
	if id == "" || token == "" {
		return nil
	}
	return &DiscordDestination{webhookID: id, webhookToken: token}
}

func (d *DiscordDestination) Name() string { return "discord" }

func (d *DiscordDestination) Send(ctx context.Context, content string) error {
	s, err := discordgo.New("")
	if err != nil {
		return err
	}
	_, err = s.WebhookExecute(d.webhookID, d.webhookToken, false, &discordgo.WebhookParams{Content: content})
	return err
}
