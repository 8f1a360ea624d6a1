package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/adityapw/wallet-tracker/internal/state"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// Renderer turns a state snapshot into terminal output. It holds no
// state of its own: same snapshot in, same text out.
type Renderer struct {
	EnableChat          bool
	EnableAnnouncements bool
}

func (r Renderer) Render(w io.Writer, snap state.Snapshot) {
	if snap.Session.Authenticated {
		fmt.Fprintf(w, "logged in as %s\n", snap.Session.Username)
	} else if snap.Session.Username != "" {
		fmt.Fprintf(w, "%s (not authenticated)\n", snap.Session.Username)
	} else {
		fmt.Fprintln(w, "not logged in")
	}

	if r.EnableAnnouncements {
		fmt.Fprintf(w, "\nAnnouncements (%d)\n", len(snap.Announcements))
		for _, a := range snap.Announcements {
			fmt.Fprintf(w, "  * %s\n", a.Content)
		}
	}

	if snap.Highlight != nil {
		h := snap.Highlight
		fmt.Fprintf(w, "\nNew wallet created: %s %g %s\n", h.Address, h.Balance, h.Currency)
	}

	fmt.Fprintf(w, "\nWallets (%d)\n", len(snap.Wallets))
	for _, wallet := range snap.Wallets {
		fmt.Fprintf(w, "  [%d] %s  %g %s\n", wallet.ID, wallet.Address, wallet.Balance, wallet.Currency)
	}

	if r.EnableChat {
		visible := VisibleMessages(snap.Chat)
		fmt.Fprintf(w, "\nChat (%d)\n", len(visible))
		for _, msg := range visible {
			fmt.Fprintf(w, "  %s: %s\n", msg.Username, msg.Message)
		}
	}
}

// VisibleMessages drops entries whose text is empty or whitespace; the
// transport occasionally produces them and the client tolerates rather
// than rejects.
func VisibleMessages(msgs []types.ChatMessage) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Message) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
