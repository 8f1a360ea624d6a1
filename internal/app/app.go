package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/api"
	"github.com/adityapw/wallet-tracker/internal/config"
	"github.com/adityapw/wallet-tracker/internal/realtime"
	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/internal/state"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

var ErrNotConfirmed = errors.New("delete not confirmed")
var ErrEmptyContent = errors.New("content cannot be empty")

// Confirm is the synchronous yes/no gate in front of destructive
// operations. The terminal front end asks on stdin; tests inject.
type Confirm func(prompt string) bool

// App routes user intents into the session store, resource client, state
// store, and realtime channel. It owns the glue, not the state.
type App struct {
	cfg      config.Config
	client   *api.Client
	sessions *session.Store
	store    *state.Store
	rt       *realtime.Manager
	log      *zap.Logger
}

func New(ctx context.Context, cfg config.Config, client *api.Client, sessions *session.Store, log *zap.Logger) *App {
	a := &App{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		log:      log,
	}
	a.store = state.New(ctx, func(fctx context.Context, username string) []types.Wallet {
		return client.WalletsByUsername(fctx, username)
	}, cfg.HighlightFor, log)
	a.rt = realtime.NewManager(cfg.WSURL, cfg.RequireAuth, a.handleEvent, log)
	return a
}

func (a *App) Store() *state.Store { return a.store }

// Start restores a persisted session if one exists: load the token,
// validate it once, and reconcile everything downstream.
func (a *App) Start(ctx context.Context) {
	if err := a.sessions.LoadPersistedToken(); err == nil {
		if err := a.sessions.Validate(ctx); err != nil {
			a.log.Info("persisted session rejected", zap.Error(err))
		}
	}
	a.sync(ctx)
}

func (a *App) Login(ctx context.Context, username string) error {
	err := a.sessions.Login(ctx, username)
	a.sync(ctx)
	return err
}

func (a *App) Logout(ctx context.Context) {
	a.sessions.Logout()
	a.sync(ctx)
}

// Shutdown closes the realtime connection and the state store.
func (a *App) Shutdown() {
	a.rt.Close()
	a.store.Inbox() <- state.Shutdown{}
}

func (a *App) RefreshWallets() {
	a.store.Inbox() <- state.RefreshWallets{}
}

func (a *App) CreateWallet(ctx context.Context, address string, balance float64, currency string) error {
	created, err := a.client.CreateWallet(ctx, types.Wallet{
		Username: a.sessions.Current().Username,
		Address:  address,
		Balance:  balance,
		Currency: currency,
	})
	if err != nil {
		return err
	}
	a.store.Inbox() <- state.WalletCreated{Wallet: created}
	return nil
}

func (a *App) UpdateWallet(ctx context.Context, w types.Wallet) error {
	if err := a.client.UpdateWallet(ctx, w); err != nil {
		return err
	}
	a.RefreshWallets()
	return nil
}

// DeleteWallet issues the DELETE only after the confirm gate passes;
// declined means no call and an unchanged list.
func (a *App) DeleteWallet(ctx context.Context, id int64, confirm Confirm) error {
	if confirm == nil || !confirm("Are you sure you want to delete this wallet?") {
		return ErrNotConfirmed
	}
	if err := a.client.DeleteWallet(ctx, id); err != nil {
		return err
	}
	a.RefreshWallets()
	return nil
}

func (a *App) RefreshAnnouncements(ctx context.Context) {
	a.store.Inbox() <- state.SetAnnouncements{Items: a.client.Announcements(ctx)}
}

// PostAnnouncement creates and optimistically appends; the next poll
// tick replaces the list with the server's view.
func (a *App) PostAnnouncement(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	created, err := a.client.CreateAnnouncement(ctx, content)
	if err != nil {
		return err
	}
	a.store.Inbox() <- state.AppendAnnouncement{Item: created}
	return nil
}

// SendChat puts one message on the realtime channel. On failure the
// caller keeps the draft; nothing was sent.
func (a *App) SendChat(ctx context.Context, draft string) error {
	return a.rt.Send(ctx, types.ChatMessage{
		Username: a.sessions.Current().Username,
		Message:  draft,
	})
}

// FetchChatHistory is the manual refresh path over REST; the realtime
// snapshot payload covers the usual case.
func (a *App) FetchChatHistory(ctx context.Context) {
	a.store.Inbox() <- state.ReplaceChat{Messages: a.client.ChatHistory(ctx)}
}

func (a *App) ChatConnected() bool { return a.rt.Connected() }

// Snapshot reads current state synchronously.
func (a *App) Snapshot() state.View {
	reply := make(chan state.View, 1)
	a.store.Inbox() <- state.GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(2 * time.Second):
		a.log.Error("state store unresponsive")
		return state.View{}
	}
}

// sync pushes the current session into the state store and reconciles
// the realtime connection with it.
func (a *App) sync(ctx context.Context) {
	sess := a.sessions.Current()
	a.store.Inbox() <- state.SetSession{Session: sess}
	if a.cfg.EnableChat {
		a.rt.Update(ctx, sess)
	}
}

// handleEvent runs on the channel's read goroutine; everything goes
// through the state store inbox.
func (a *App) handleEvent(ev types.Event) {
	switch ev.Kind {
	case types.EventSnapshot:
		a.store.Inbox() <- state.ReplaceChat{Messages: ev.History}
	case types.EventMessage:
		a.store.Inbox() <- state.AppendChat{Message: ev.Message}
	case types.EventWallet:
		a.store.Inbox() <- state.WalletCreated{Wallet: ev.Wallet}
	}
}
