// Package repo — WalletBinding persistence.
//
// Bindings map a session key to the user's external payout address. Writes
// are last-write-wins (re-binding simply replaces the address); the swap
// pipeline only ever reads.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aptosphere/go-swap-backend/internal/domain"
)

// UpsertBinding writes (or replaces) the payout address for sessionKey.
func UpsertBinding(ctx context.Context, db *gorm.DB, sessionKey, address string) error {
	b := &domain.WalletBinding{
		SessionKey: sessionKey,
		Address:    address,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
		}).
		Create(b).Error
}

// GetBinding fetches the payout address bound to sessionKey, or ErrNotFound.
func GetBinding(ctx context.Context, db *gorm.DB, sessionKey string) (*domain.WalletBinding, error) {
	var b domain.WalletBinding
	if err := db.WithContext(ctx).Where("session_key = ?", sessionKey).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
