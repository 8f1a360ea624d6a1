package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// The store is the one writer for everything the UI shows: session,
// wallets, announcements, chat log, new-wallet highlight. The poller,
// the realtime channel, and the resource client all post messages here
// instead of touching shared state.

type Msg interface{ isStateMsg() }

type SetSession struct{ Session session.Session }

// RefreshWallets asks for a wallet refetch for the current username.
// In-flight fetches superseded by a newer refresh are dropped on arrival.
type RefreshWallets struct{}

type SetAnnouncements struct{ Items []types.Announcement }

// AppendAnnouncement is the optimistic local append after a successful
// create; the next poll tick replaces the list wholesale anyway.
type AppendAnnouncement struct{ Item types.Announcement }

type ReplaceChat struct{ Messages []types.ChatMessage }

type AppendChat struct{ Message types.ChatMessage }

// WalletCreated is the out-of-band creation notice: highlight the wallet
// for a while and refetch the list.
type WalletCreated struct{ Wallet types.Wallet }

type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

type Unsubscribe struct{ ID string }

type GetState struct{ Reply chan View }

type Shutdown struct{}

// internal: a wallet fetch finishing, tagged with its generation.
type walletsFetched struct {
	gen     int
	wallets []types.Wallet
}

// internal: a highlight timer firing, tagged with its generation.
type clearHighlight struct{ gen int }

func (SetSession) isStateMsg()         {}
func (RefreshWallets) isStateMsg()     {}
func (SetAnnouncements) isStateMsg()   {}
func (AppendAnnouncement) isStateMsg() {}
func (ReplaceChat) isStateMsg()        {}
func (AppendChat) isStateMsg()         {}
func (WalletCreated) isStateMsg()      {}
func (Subscribe) isStateMsg()          {}
func (Unsubscribe) isStateMsg()        {}
func (GetState) isStateMsg()           {}
func (Shutdown) isStateMsg()           {}
func (walletsFetched) isStateMsg()     {}
func (clearHighlight) isStateMsg()     {}

// View reflects internal state without data races; GetState is how tests
// and the command loop read without subscribing.
type View struct {
	Snapshot
	NumSubscribers int
}

// Snapshot is what subscribers receive on every change.
type Snapshot struct {
	Version       int
	Session       session.Session
	Wallets       []types.Wallet
	Announcements []types.Announcement
	Chat          []types.ChatMessage
	Highlight     *types.Wallet
}

// Fetcher loads the wallet list for a username. It must degrade to an
// empty list on failure rather than returning an error; the resource
// client already does.
type Fetcher func(ctx context.Context, username string) []types.Wallet

type Store struct {
	inbox        chan Msg
	fetch        Fetcher
	highlightFor time.Duration
	log          *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc

	sess          session.Session
	wallets       []types.Wallet
	announcements []types.Announcement
	chat          []types.ChatMessage
	highlight     *types.Wallet
	version       int
	walletGen     int
	highlightGen  int
	subs          map[string]chan Snapshot
}

func New(parent context.Context, fetch Fetcher, highlightFor time.Duration, log *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(parent)

	s := &Store{
		inbox:        make(chan Msg, 64),
		fetch:        fetch,
		highlightFor: highlightFor,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		subs:         make(map[string]chan Snapshot),
	}

	go s.loop()
	return s
}

func (s *Store) Inbox() chan<- Msg { return s.inbox }

func (s *Store) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case SetSession:
				usernameChanged := msg.Session.Username != s.sess.Username
				s.sess = msg.Session
				if usernameChanged {
					s.wallets = nil
					s.highlight = nil
					if s.sess.Username != "" {
						s.startWalletFetch()
					}
				}
				s.broadcast()

			case RefreshWallets:
				if s.sess.Username == "" {
					break
				}
				s.startWalletFetch()

			case walletsFetched:
				if msg.gen != s.walletGen {
					s.log.Debug("dropping stale wallet fetch",
						zap.Int("gen", msg.gen), zap.Int("current", s.walletGen))
					break
				}
				s.wallets = msg.wallets
				s.broadcast()

			case SetAnnouncements:
				s.announcements = msg.Items
				s.broadcast()

			case AppendAnnouncement:
				s.announcements = appendCopy(s.announcements, msg.Item)
				s.broadcast()

			case ReplaceChat:
				s.chat = msg.Messages
				s.broadcast()

			case AppendChat:
				s.chat = appendCopy(s.chat, msg.Message)
				s.broadcast()

			case WalletCreated:
				w := msg.Wallet
				s.highlight = &w
				s.highlightGen++
				s.startHighlightTimer(s.highlightGen)
				s.startWalletFetch()
				s.broadcast()

			case clearHighlight:
				if msg.gen != s.highlightGen {
					break
				}
				s.highlight = nil
				s.broadcast()

			case Subscribe:
				s.subs[msg.ID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Unsubscribe:
				delete(s.subs, msg.ID)

			case GetState:
				msg.Reply <- View{Snapshot: s.snapshot(), NumSubscribers: len(s.subs)}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// startWalletFetch bumps the generation and fetches in the background;
// the result comes back through the inbox so only the loop writes state.
func (s *Store) startWalletFetch() {
	s.walletGen++
	gen := s.walletGen
	username := s.sess.Username

	go func() {
		wallets := s.fetch(s.ctx, username)
		select {
		case s.inbox <- walletsFetched{gen: gen, wallets: wallets}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Store) startHighlightTimer(gen int) {
	go func() {
		select {
		case <-time.After(s.highlightFor):
			select {
			case s.inbox <- clearHighlight{gen: gen}:
			case <-s.ctx.Done():
			}
		case <-s.ctx.Done():
		}
	}()
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{
		Version:       s.version,
		Session:       s.sess,
		Wallets:       s.wallets,
		Announcements: s.announcements,
		Chat:          s.chat,
		Highlight:     s.highlight,
	}
}

func (s *Store) broadcast() {
	s.version++
	snap := s.snapshot()
	for id, ch := range s.subs {
		select {
		case ch <- snap:
			// ok
		default:
			// Subscriber is slow/full - drop it.
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Store) shutdown() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

// appendCopy appends without sharing the backing array with snapshots
// already handed to subscribers.
func appendCopy[T any](in []T, item T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return append(out, item)
}
