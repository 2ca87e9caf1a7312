// Package notifier fans an operator-facing message out to whichever of
// Slack/Discord/Telegram is configured, swallowing per-destination errors
// after a warning log (spec.md §4.6, §7). Every destination is optional;
// an unconfigured destination is simply skipped (original_source
// operator/notifier.rs's "configured" predicate per destination).
package notifier

import (
	"context"
	"sync"

	"github.com/graphindexer/gossip-listener/internal/logging"
)

// Destination sends one notification to a single outbound channel.
type Destination interface {
	Name() string
	Send(ctx context.Context, content string) error
}

// Notifier fans content out to every configured Destination concurrently,
// best-effort.
type Notifier struct {
	radioName    string
	destinations []Destination
	log          *logging.Logger
}

// New builds a Notifier. radioName is prefixed onto every message, matching
// the original's radio_name-prefixed payload convention.
func New(radioName string, destinations ...Destination) *Notifier {
	return &Notifier{radioName: radioName, destinations: destinations, log: logging.Module("notifier")}
}

// Notify sends content, prefixed with the radio name, to every configured
// destination. Each delivery failure is logged but never propagated
// (spec.md §7 "notifier errors: swallowed after a warning log").
func (n *Notifier) Notify(ctx context.Context, content string) {
	if len(n.destinations) == 0 {
		return
	}
	body := "[" + n.radioName + "] " + content

	var wg sync.WaitGroup
	for _, d := range n.destinations {
		wg.Add(1)
		go func(d Destination) {
			defer wg.Done()
			if err := d.Send(ctx, body); err != nil {
				n.log.Warn("notifier delivery failed", "destination", d.Name(), "err", err)
			}
		}(d)
	}
	wg.Wait()
}
