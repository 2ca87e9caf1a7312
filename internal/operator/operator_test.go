package operator

import (
	"log/slog"
	"testing"

	"github.com/graphindexer/gossip-listener/internal/config"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Errorf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildDestinationsSkipsUnconfigured(t *testing.T) {
	dests := buildDestinations(config.Config{})
	if len(dests) != 0 {
		t.Fatalf("want 0 destinations for an unconfigured config, got %d", len(dests))
	}
}

func TestBuildDestinationsIncludesConfiguredOnes(t *testing.T) {
	cfg := config.Config{
		SlackWebhook:   "https://hooks.slack.com/services/x",
		DiscordWebhook: "https://discord.com/api/webhooks/123/abc",
		TelegramToken:  "token",
		TelegramChatID: "chat",
	}
	dests := buildDestinations(cfg)
	if len(dests) != 3 {
		t.Fatalf("want 3 destinations, got %d", len(dests))
	}
}
