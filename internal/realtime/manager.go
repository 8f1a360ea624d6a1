package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/session"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// Manager ties the channel lifecycle to session eligibility: a
// connection exists exactly while hasUsername AND (authenticated or auth
// not required) holds. An eligibility flip to true opens one connection;
// a flip to false, a username change, or Close tears it down. The old
// connection is always closed before a new one is dialed, so at most one
// is ever live. There is no automatic reconnect beyond these flips.
type Manager struct {
	wsURL       string
	requireAuth bool
	onEvent     EventHandler
	log         *zap.Logger

	mu      sync.Mutex
	cur     *Channel
	curUser string
}

func NewManager(wsURL string, requireAuth bool, onEvent EventHandler, log *zap.Logger) *Manager {
	return &Manager{wsURL: wsURL, requireAuth: requireAuth, onEvent: onEvent, log: log}
}

// Update reconciles the connection with the latest session snapshot.
// Call it on every session transition.
func (m *Manager) Update(ctx context.Context, sess session.Session) {
	eligible := sess.Eligible(m.requireAuth)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur != nil && (!eligible || m.curUser != sess.Username) {
		m.log.Info("closing realtime channel", zap.String("username", m.curUser))
		m.cur.Close()
		m.cur = nil
		m.curUser = ""
	}

	if eligible && m.cur == nil {
		ch, err := Dial(ctx, m.wsURL, sess.Username, m.onEvent, m.log)
		if err != nil {
			m.log.Warn("realtime dial failed", zap.Error(err))
			return
		}
		m.cur = ch
		m.curUser = sess.Username
	}
}

// Send forwards to the live channel; without one it is the same rejected
// no-op as Channel.Send.
func (m *Manager) Send(ctx context.Context, msg types.ChatMessage) error {
	m.mu.Lock()
	cur := m.cur
	m.mu.Unlock()

	if cur == nil {
		m.log.Warn("send rejected, no realtime channel")
		return ErrNotConnected
	}
	return cur.Send(ctx, msg)
}

// Connected reports whether a joined channel is live right now.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil && m.cur.Status() == StatusJoined
}

// Close drops any live connection; the manager can be reused afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.Close()
		m.cur = nil
		m.curUser = ""
	}
}
