// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for SwapRecord.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition — with one deliberate exception:
// AdvanceStatus enforces the state machine's monotonicity at the write path,
// so a stale pipeline can never move a record backwards or out of a terminal
// state, whatever the caller believes the current status is.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - AdvanceStatus returns ErrIllegalTransition for non-monotonic moves.
//   - On DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aptosphere/go-swap-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for convenience and consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrIllegalTransition is returned when a status update would violate the
// SwapRecord state machine.
var ErrIllegalTransition = errors.New("illegal status transition")

// CreateSwap inserts a new SwapRecord in PENDING_DEPOSIT with a generated
// UUID primary key and returns the persisted record.
func CreateSwap(ctx context.Context, db *gorm.DB, rec *domain.SwapRecord) (*domain.SwapRecord, error) {
	rec.ID = uuid.NewString()
	rec.Status = domain.StatusPendingDeposit
	rec.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetSwap fetches a SwapRecord by ID, or ErrNotFound.
func GetSwap(ctx context.Context, db *gorm.DB, id string) (*domain.SwapRecord, error) {
	var rec domain.SwapRecord
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// AdvanceStatus moves a SwapRecord to next and applies any column mutations
// carried alongside the transition (observed amounts, hashes, failure
// detail). The update is guarded by the state machine: it re-reads the
// current status and refuses non-monotonic moves with ErrIllegalTransition.
func AdvanceStatus(ctx context.Context, db *gorm.DB, id string, next domain.SwapStatus, set map[string]any) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.SwapRecord
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}
		if !rec.Status.CanTransitionTo(next) {
			return errors.Join(ErrIllegalTransition,
				errors.New(string(rec.Status)+" -> "+string(next)))
		}

		updates := map[string]any{"status": next}
		for k, v := range set {
			updates[k] = v
		}
		return tx.Model(&domain.SwapRecord{}).Where("id = ?", id).Updates(updates).Error
	})
}

// HasActiveSwap reports whether the session already has a record in a
// non-terminal status.
func HasActiveSwap(ctx context.Context, db *gorm.DB, sessionKey string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.SwapRecord{}).
		Where("session_key = ? AND status NOT IN ?", sessionKey, []domain.SwapStatus{
			domain.StatusCompleted, domain.StatusFailed, domain.StatusTimedOut,
		}).
		Count(&n).Error
	return n > 0, err
}

// CountSwaps returns the total number of records for sessionKey.
func CountSwaps(ctx context.Context, db *gorm.DB, sessionKey string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SwapRecord{}).
		Where("session_key = ?", sessionKey).
		Count(&total).Error
	return total, err
}

// ListSwapsPage returns a page of the session's audit trail, most recent
// first. Use CountSwaps to obtain the total for pagination metadata.
func ListSwapsPage(ctx context.Context, db *gorm.DB, sessionKey string, offset, limit int) ([]domain.SwapRecord, error) {
	var out []domain.SwapRecord
	err := db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
