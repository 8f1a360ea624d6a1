package storage

import (
	"errors"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

var ErrNotFound = errors.New("not found")

// Store is the devserver's persistence boundary. The memory
// implementation backs tests and zero-setup runs; the gorm one backs a
// real Postgres.
type Store interface {
	WalletsByUsername(username string) ([]types.Wallet, error)
	CreateWallet(w types.Wallet) (types.Wallet, error)
	UpdateWallet(w types.Wallet) error
	DeleteWallet(id int64) error

	Announcements() ([]types.Announcement, error)
	CreateAnnouncement(content string) (types.Announcement, error)
}
