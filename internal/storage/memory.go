package storage

import (
	"sort"
	"sync"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

// Memory keeps everything in maps. Good enough for tests and for
// running the devserver without a database.
type Memory struct {
	mu            sync.Mutex
	nextWallet    int64
	nextAnnounce  int64
	wallets       map[int64]types.Wallet
	announcements map[int64]types.Announcement
}

func NewMemory() *Memory {
	return &Memory{
		wallets:       make(map[int64]types.Wallet),
		announcements: make(map[int64]types.Announcement),
	}
}

func (m *Memory) WalletsByUsername(username string) ([]types.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []types.Wallet{}
	for _, w := range m.wallets {
		if w.Username == username {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateWallet(w types.Wallet) (types.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextWallet++
	w.ID = m.nextWallet
	m.wallets[w.ID] = w
	return w, nil
}

func (m *Memory) UpdateWallet(w types.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.wallets[w.ID]
	if !ok {
		return ErrNotFound
	}
	if w.Username == "" {
		w.Username = existing.Username
	}
	m.wallets[w.ID] = w
	return nil
}

func (m *Memory) DeleteWallet(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[id]; !ok {
		return ErrNotFound
	}
	delete(m.wallets, id)
	return nil
}

func (m *Memory) Announcements() ([]types.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []types.Announcement{}
	for _, a := range m.announcements {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateAnnouncement(content string) (types.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAnnounce++
	a := types.Announcement{ID: m.nextAnnounce, Content: content}
	m.announcements[a.ID] = a
	return a, nil
}
