package notifier

import (
	"context"
	"strings"
	"sync"
	"testing"
)

type fakeDestination struct {
	name string
	mu   sync.Mutex
	got  []string
	err  error
}

func (f *fakeDestination) Name() string { return f.name }

func (f *fakeDestination) Send(_ context.Context, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, content)
	return f.err
}

func TestNotifyPrefixesRadioNameAndFansOut(t *testing.T) {
	a := &fakeDestination{name: "a"}
	b := &fakeDestination{name: "b"}
	n := New("subgraph-radio", a, b)

	n.Notify(context.Background(), "hello")

	for _, d := range []*fakeDestination{a, b} {
		if len(d.got) != 1 || !strings.HasPrefix(d.got[0], "[subgraph-radio]") {
			t.Fatalf("destination %s did not receive prefixed content: %v", d.name, d.got)
		}
	}
}

func TestNotifySwallowsDestinationErrors(t *testing.T) {
	failing := &fakeDestination{name: "failing", err: context.DeadlineExceeded}
	n := New("radio", failing)

	// Must not panic or propagate the destination's error.
	n.Notify(context.Background(), "hello")

	if len(failing.got) != 1 {
		t.Fatalf("want 1 send attempt, got %d", len(failing.got))
	}
}

func TestNewDiscordDestinationParsesWebhookURL(t *testing.T) {
	d := NewDiscordDestination("https://discord.com/api/webhooks/123456/abcDEF-token")
	if d == nil {
		t.Fatal("want non-nil destination for well-formed webhook URL")
	}
	if d.webhookID != "123456" || d.webhookToken != "abcDEF-token" {
		t.Fatalf("unexpected parse: id=%q token=%q", d.webhookID, d.webhookToken)
	}
}

func TestConstructorsReturnNilWhenUnconfigured(t *testing.T) {
	if d := NewSlackDestination(""); d != nil {
		t.Fatal("want nil slack destination for empty webhook")
	}
	if d := NewDiscordDestination(""); d != nil {
		t.Fatal("want nil discord destination for empty webhook")
	}
	if d := NewTelegramDestination("", ""); d != nil {
		t.Fatal("want nil telegram destination for empty token/chat")
	}
}
