package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/api"
	"github.com/adityapw/wallet-tracker/internal/config"
	"github.com/adityapw/wallet-tracker/internal/realtime"
	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// backend is an in-process stand-in for the REST API, recording the
// mutating calls the tests assert on.
type backend struct {
	mu            sync.Mutex
	deletes       int
	announcements []types.Announcement
	wallets       []types.Wallet
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.LoginResponse{Token: "T1"})
	})
	mux.HandleFunc("GET /protected/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(types.Profile{Username: "alice"})
	})
	mux.HandleFunc("GET /wallets/username/{username}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.wallets)
	})
	mux.HandleFunc("DELETE /wallets/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deletes++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /announcements", func(w http.ResponseWriter, r *http.Request) {
		var a types.Announcement
		_ = json.NewDecoder(r.Body).Decode(&a)
		b.mu.Lock()
		a.ID = int64(len(b.announcements) + 1)
		b.announcements = append(b.announcements, a)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(a)
	})
	mux.HandleFunc("GET /announcements", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.announcements)
	})

	return mux
}

func (b *backend) deleteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deletes
}

func newTestApp(t *testing.T, b *backend) *App {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	cfg.WSURL = "ws://127.0.0.1:1/ws" // nothing listening; chat stays down
	cfg.HighlightFor = 50 * time.Millisecond

	log := zap.NewNop()
	client := api.New(cfg.BackendURL, cfg.RequestTimeout, log)
	sessions := session.NewStore(filepath.Join(t.TempDir(), "token.json"), client, log)

	ctx, cancel := context.WithCancel(context.Background())
	a := New(ctx, cfg, client, sessions, log)
	t.Cleanup(func() {
		a.Shutdown()
		cancel()
	})
	return a
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

func TestApp_LoginShowsWallets(t *testing.T) {
	b := &backend{wallets: []types.Wallet{
		{ID: 1, Username: "alice", Address: "0xaaa", Balance: 3, Currency: "BTC"},
		{ID: 2, Username: "alice", Address: "0xbbb", Balance: 0.5, Currency: "ETH"},
	}}
	a := newTestApp(t, b)

	if err := a.Login(context.Background(), "alice"); err != nil {
		t.Fatalf("login: %v", err)
	}

	waitFor(t, func() bool {
		v := a.Snapshot()
		return v.Session.Authenticated && len(v.Wallets) == 2
	})
	if v := a.Snapshot(); v.Session.Username != "alice" {
		t.Fatalf("bad session: %+v", v.Session)
	}
}

func TestApp_DeleteWalletRequiresConfirmation(t *testing.T) {
	b := &backend{wallets: []types.Wallet{
		{ID: 1, Username: "alice", Address: "0xaaa", Balance: 3, Currency: "BTC"},
	}}
	a := newTestApp(t, b)
	if err := a.Login(context.Background(), "alice"); err != nil {
		t.Fatalf("login: %v", err)
	}
	waitFor(t, func() bool { return len(a.Snapshot().Wallets) == 1 })

	declined := func(string) bool { return false }
	if err := a.DeleteWallet(context.Background(), 1, declined); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("want ErrNotConfirmed, got %v", err)
	}
	if b.deleteCount() != 0 {
		t.Fatalf("declined confirm must not issue a DELETE")
	}
	if len(a.Snapshot().Wallets) != 1 {
		t.Fatalf("wallet list changed without a delete")
	}

	accepted := func(string) bool { return true }
	if err := a.DeleteWallet(context.Background(), 1, accepted); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if b.deleteCount() != 1 {
		t.Fatalf("want one DELETE, got %d", b.deleteCount())
	}
}

func TestApp_SendChatWithoutChannelRejects(t *testing.T) {
	a := newTestApp(t, &backend{})

	draft := "first message"
	err := a.SendChat(context.Background(), draft)
	if !errors.Is(err, realtime.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
	// The caller keeps the draft on error; nothing consumed it.
	if draft != "first message" {
		t.Fatalf("draft must be untouched")
	}
}

func TestApp_PostAnnouncementOptimisticAppend(t *testing.T) {
	a := newTestApp(t, &backend{})

	if err := a.PostAnnouncement(context.Background(), "ship it"); err != nil {
		t.Fatalf("post: %v", err)
	}
	waitFor(t, func() bool {
		v := a.Snapshot()
		return len(v.Announcements) == 1 && v.Announcements[0].Content == "ship it"
	})
}

func TestApp_PostAnnouncementRejectsEmpty(t *testing.T) {
	b := &backend{}
	a := newTestApp(t, b)

	for _, content := range []string{"", "   ", "\t\n"} {
		if err := a.PostAnnouncement(context.Background(), content); !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("want ErrEmptyContent for %q, got %v", content, err)
		}
	}
	if len(b.announcements) != 0 {
		t.Fatalf("empty announcements must not reach the backend")
	}
}

func TestApp_StartWithBadPersistedToken(t *testing.T) {
	// Profile rejects anything but T1; a stale token must be cleared.
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	cfg.WSURL = "ws://127.0.0.1:1/ws"

	log := zap.NewNop()
	client := api.New(cfg.BackendURL, cfg.RequestTimeout, log)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	writeFile(t, tokenPath, `{"token":"stale"}`)
	sessions := session.NewStore(tokenPath, client, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(ctx, cfg, client, sessions, log)
	defer a.Shutdown()

	a.Start(context.Background())

	v := a.Snapshot()
	if v.Session.Authenticated || v.Session.Username != "" {
		t.Fatalf("stale token must leave session unauthenticated: %+v", v.Session)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
