package storage

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

type walletRecord struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"index"`
	Address  string
	Balance  float64
	Currency string
}

func (walletRecord) TableName() string { return "wallets" }

type announcementRecord struct {
	ID      int64 `gorm:"primaryKey"`
	Content string
}

func (announcementRecord) TableName() string { return "announcements" }

// Gorm is the Postgres-backed store used when DATABASE_URL is set.
type Gorm struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&walletRecord{}, &announcementRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) WalletsByUsername(username string) ([]types.Wallet, error) {
	var records []walletRecord
	if err := g.db.Where("username = ?", username).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]types.Wallet, 0, len(records))
	for _, r := range records {
		out = append(out, walletFromRecord(r))
	}
	return out, nil
}

func (g *Gorm) CreateWallet(w types.Wallet) (types.Wallet, error) {
	rec := walletRecord{
		Username: w.Username,
		Address:  w.Address,
		Balance:  w.Balance,
		Currency: w.Currency,
	}
	if err := g.db.Create(&rec).Error; err != nil {
		return types.Wallet{}, err
	}
	return walletFromRecord(rec), nil
}

func (g *Gorm) UpdateWallet(w types.Wallet) error {
	res := g.db.Model(&walletRecord{ID: w.ID}).Updates(map[string]any{
		"address":  w.Address,
		"balance":  w.Balance,
		"currency": w.Currency,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) DeleteWallet(id int64) error {
	res := g.db.Delete(&walletRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) Announcements() ([]types.Announcement, error) {
	var records []announcementRecord
	if err := g.db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]types.Announcement, 0, len(records))
	for _, r := range records {
		out = append(out, types.Announcement{ID: r.ID, Content: r.Content})
	}
	return out, nil
}

func (g *Gorm) CreateAnnouncement(content string) (types.Announcement, error) {
	rec := announcementRecord{Content: content}
	if err := g.db.Create(&rec).Error; err != nil {
		return types.Announcement{}, err
	}
	return types.Announcement{ID: rec.ID, Content: rec.Content}, nil
}

// IsNotFound maps both store flavors onto one check for handlers.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func walletFromRecord(r walletRecord) types.Wallet {
	return types.Wallet{
		ID:       r.ID,
		Username: r.Username,
		Address:  r.Address,
		Balance:  r.Balance,
		Currency: r.Currency,
	}
}
