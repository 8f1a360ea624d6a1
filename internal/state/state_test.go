package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

// helper: drain snapshots until cond holds or the deadline passes
func waitSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("subscriber outbox closed unexpectedly")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching snapshot")
			return Snapshot{} // unreachable
		}
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func getView(t *testing.T, s *Store) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	return recvView(t, reply, time.Second)
}

// stubFetcher hands out one release channel per fetch call so tests can
// resolve fetches out of order.
type stubFetcher struct {
	mu    sync.Mutex
	calls []chan []types.Wallet
}

func (f *stubFetcher) fetch(ctx context.Context, _ string) []types.Wallet {
	ch := make(chan []types.Wallet, 1)
	f.mu.Lock()
	f.calls = append(f.calls, ch)
	f.mu.Unlock()

	select {
	case w := <-ch:
		return w
	case <-ctx.Done():
		return nil
	}
}

func (f *stubFetcher) release(t *testing.T, call int, wallets []types.Wallet) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		f.mu.Lock()
		if len(f.calls) > call {
			ch := f.calls[call]
			f.mu.Unlock()
			ch <- wallets
			return
		}
		n := len(f.calls)
		f.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("fetch call %d never happened (have %d)", call, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func instantFetcher(wallets []types.Wallet) Fetcher {
	return func(context.Context, string) []types.Wallet { return wallets }
}

func alice() session.Session {
	return session.Session{Token: "T1", Username: "alice", Authenticated: true}
}

func TestStore_LoginThenWalletsShowUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	two := []types.Wallet{
		{ID: 1, Address: "0xaaa", Balance: 3, Currency: "BTC"},
		{ID: 2, Address: "0xbbb", Balance: 0.5, Currency: "ETH"},
	}
	s := New(ctx, instantFetcher(two), time.Second, zap.NewNop())

	out := make(chan Snapshot, 8)
	s.Inbox() <- Subscribe{ID: "ui", Outbox: out}
	first := recvSnapshot(t, out, time.Second)
	if first.Session.Authenticated || len(first.Wallets) != 0 {
		t.Fatalf("initial snapshot should be empty, got %+v", first)
	}

	s.Inbox() <- SetSession{Session: alice()}

	snap := waitSnapshot(t, out, time.Second, func(s Snapshot) bool { return len(s.Wallets) == 2 })
	if !snap.Session.Authenticated || snap.Session.Username != "alice" {
		t.Fatalf("session not applied: %+v", snap.Session)
	}
}

func TestStore_StaleWalletFetchIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &stubFetcher{}
	s := New(ctx, f.fetch, time.Second, zap.NewNop())

	out := make(chan Snapshot, 16)
	s.Inbox() <- Subscribe{ID: "ui", Outbox: out}
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- SetSession{Session: alice()} // fetch #0
	s.Inbox() <- RefreshWallets{}             // fetch #1 supersedes #0

	newer := []types.Wallet{{ID: 9, Address: "0xnew", Balance: 1, Currency: "BTC"}}
	older := []types.Wallet{{ID: 1, Address: "0xold", Balance: 1, Currency: "BTC"}}

	f.release(t, 1, newer)
	snap := waitSnapshot(t, out, time.Second, func(s Snapshot) bool { return len(s.Wallets) == 1 })
	if snap.Wallets[0].Address != "0xnew" {
		t.Fatalf("want newer fetch applied, got %+v", snap.Wallets)
	}

	// The superseded fetch resolves late; its result must not overwrite.
	f.release(t, 0, older)
	time.Sleep(50 * time.Millisecond)
	v := getView(t, s)
	if len(v.Wallets) != 1 || v.Wallets[0].Address != "0xnew" {
		t.Fatalf("stale fetch overwrote newer result: %+v", v.Wallets)
	}
}

func TestStore_UsernameChangeClearsWallets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &stubFetcher{}
	s := New(ctx, f.fetch, time.Second, zap.NewNop())

	s.Inbox() <- SetSession{Session: alice()}
	f.release(t, 0, []types.Wallet{{ID: 1, Address: "0xaaa", Balance: 1, Currency: "BTC"}})

	waitFor(t, func() bool { return len(getView(t, s).Wallets) == 1 })

	s.Inbox() <- SetSession{Session: session.Session{}}
	waitFor(t, func() bool {
		v := getView(t, s)
		return len(v.Wallets) == 0 && v.Session.Username == ""
	})
}

func TestStore_AnnouncementRefreshIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), time.Second, zap.NewNop())

	items := []types.Announcement{{ID: 1, Content: "welcome"}, {ID: 2, Content: "maintenance at noon"}}
	for i := 0; i < 5; i++ {
		s.Inbox() <- SetAnnouncements{Items: items}
	}

	waitFor(t, func() bool { return len(getView(t, s).Announcements) == 2 })
	v := getView(t, s)
	if v.Announcements[0].Content != "welcome" || v.Announcements[1].Content != "maintenance at noon" {
		t.Fatalf("announcement list changed across identical refreshes: %+v", v.Announcements)
	}
}

func TestStore_OptimisticAnnouncementAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), time.Second, zap.NewNop())
	s.Inbox() <- SetAnnouncements{Items: []types.Announcement{{ID: 1, Content: "a"}}}
	s.Inbox() <- AppendAnnouncement{Item: types.Announcement{ID: 2, Content: "b"}}

	waitFor(t, func() bool { return len(getView(t, s).Announcements) == 2 })

	// Next poll tick replaces wholesale, optimism included.
	s.Inbox() <- SetAnnouncements{Items: []types.Announcement{{ID: 1, Content: "a"}}}
	waitFor(t, func() bool { return len(getView(t, s).Announcements) == 1 })
}

func TestStore_ChatReplaceAndAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), time.Second, zap.NewNop())

	s.Inbox() <- AppendChat{Message: types.ChatMessage{Username: "zed", Message: "old"}}
	s.Inbox() <- ReplaceChat{Messages: []types.ChatMessage{{Username: "bob", Message: "hi"}}}
	waitFor(t, func() bool {
		v := getView(t, s)
		return len(v.Chat) == 1 && v.Chat[0].Username == "bob"
	})

	s.Inbox() <- AppendChat{Message: types.ChatMessage{Username: "carol", Message: "yo"}}
	waitFor(t, func() bool { return len(getView(t, s).Chat) == 2 })
	v := getView(t, s)
	if v.Chat[1].Username != "carol" {
		t.Fatalf("append did not add exactly one entry: %+v", v.Chat)
	}
}

func TestStore_HighlightSetAndCleared(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), 50*time.Millisecond, zap.NewNop())
	s.Inbox() <- SetSession{Session: alice()}

	s.Inbox() <- WalletCreated{Wallet: types.Wallet{ID: 3, Address: "0xccc", Balance: 2, Currency: "SOL"}}

	waitFor(t, func() bool {
		v := getView(t, s)
		return v.Highlight != nil && v.Highlight.ID == 3
	})
	waitFor(t, func() bool { return getView(t, s).Highlight == nil })
}

func TestStore_NewerHighlightSurvivesOlderTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), 80*time.Millisecond, zap.NewNop())
	s.Inbox() <- SetSession{Session: alice()}

	s.Inbox() <- WalletCreated{Wallet: types.Wallet{ID: 1, Address: "0xone", Balance: 1, Currency: "BTC"}}
	time.Sleep(40 * time.Millisecond)
	s.Inbox() <- WalletCreated{Wallet: types.Wallet{ID: 2, Address: "0xtwo", Balance: 2, Currency: "BTC"}}

	// When wallet #1's timer fires, wallet #2's highlight must survive.
	time.Sleep(60 * time.Millisecond)
	v := getView(t, s)
	if v.Highlight == nil || v.Highlight.ID != 2 {
		t.Fatalf("older timer clobbered newer highlight: %+v", v.Highlight)
	}

	waitFor(t, func() bool { return getView(t, s).Highlight == nil })
}

func TestStore_DropSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, instantFetcher(nil), time.Second, zap.NewNop())

	out := make(chan Snapshot, 1)
	s.Inbox() <- Subscribe{ID: "slow", Outbox: out}

	// The initial snapshot fills the buffer; the next broadcast drops us.
	s.Inbox() <- SetAnnouncements{Items: []types.Announcement{{Content: "x"}}}

	waitFor(t, func() bool { return getView(t, s).NumSubscribers == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition never held")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
