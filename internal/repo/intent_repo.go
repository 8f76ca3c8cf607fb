// Package repo — SwapIntent persistence.
//
// A session holds at most one intent, enforced by using the session key as
// the primary key: UpsertIntent replaces any prior unconfirmed intent
// wholesale, and DeleteIntent consumes the row when orchestration starts.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aptosphere/go-swap-backend/internal/domain"
)

// UpsertIntent writes the session's current intent, replacing any prior one.
// The quote columns are overwritten too, so a superseded intent can never
// leak a stale quote.
func UpsertIntent(ctx context.Context, db *gorm.DB, intent *domain.SwapIntent) error {
	intent.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"source_token", "dest_token", "amount",
				"quote_in_units", "quote_out_units", "quoted_at",
				"created_at", "updated_at",
			}),
		}).
		Create(intent).Error
}

// GetIntent fetches the session's pending intent, or ErrNotFound.
func GetIntent(ctx context.Context, db *gorm.DB, sessionKey string) (*domain.SwapIntent, error) {
	var intent domain.SwapIntent
	if err := db.WithContext(ctx).Where("session_key = ?", sessionKey).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// DeleteIntent removes the session's intent. Deleting a missing intent
// returns ErrNotFound so callers can distinguish "rejected nothing".
func DeleteIntent(ctx context.Context, db *gorm.DB, sessionKey string) error {
	res := db.WithContext(ctx).Where("session_key = ?", sessionKey).Delete(&domain.SwapIntent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
