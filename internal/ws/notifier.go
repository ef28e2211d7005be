package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/loangraph/microlend/internal/chain"
)

const AllEventsChannel = "events:all"

func AssetChannel(id string) string { return "asset:" + id }

func LoanChannel(id string) string { return "loan:" + id }

func AccountChannel(p string) string { return "account:" + p }

// principalFields are event fields that name an account worth notifying.
var principalFields = []string{"depositor", "borrower", "creator", "updater", "proposer", "approver", "to", "caller"}

// Notifier routes committed ledger events to websocket channels. It is
// registered as a host listener and must not block.
type Notifier struct {
	hub    *Hub
	logger *slog.Logger
}

func NewNotifier(hub *Hub, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hub: hub, logger: logger}
}

func (n *Notifier) Listener() chain.Listener {
	return n.Notify
}

func (n *Notifier) Notify(events []chain.Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			n.logger.Warn("ws event encode failed", "event", ev.Name, "err", err)
			continue
		}
		for _, channel := range Channels(ev) {
			n.hub.Publish(channel, payload)
		}
	}
}

// Channels lists every channel an event is delivered on.
func Channels(ev chain.Event) []string {
	out := []string{AllEventsChannel}
	if id, ok := ev.Fields["asset_id"]; ok {
		out = append(out, AssetChannel(fmt.Sprint(id)))
	} else if id, ok := ev.Fields["id"]; ok && isAssetEvent(ev.Name) {
		out = append(out, AssetChannel(fmt.Sprint(id)))
	}
	if id, ok := ev.Fields["loan_id"]; ok {
		out = append(out, LoanChannel(fmt.Sprint(id)))
	}
	seen := map[string]struct{}{}
	for _, field := range principalFields {
		p, ok := ev.Fields[field].(string)
		if !ok || p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, AccountChannel(p))
	}
	return out
}

func isAssetEvent(name string) bool {
	return strings.HasPrefix(name, "asset-") || name == "gov-threshold-changed"
}
