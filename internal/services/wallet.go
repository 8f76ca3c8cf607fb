// Package services – WalletService
//
// This file implements payout address registration. Binding is deliberately
// simple: one address per session, last write wins, validated for shape only.
// Ownership of the address cannot be proven here and is not attempted.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aptosphere/go-swap-backend/internal/domain"
	"github.com/aptosphere/go-swap-backend/internal/notify"
	"github.com/aptosphere/go-swap-backend/internal/repo"
)

// ErrInvalidAddress is returned when a payout address is not a plausible
// Aptos account address.
var ErrInvalidAddress = errors.New("invalid aptos address")

// ErrNoBinding is returned when the session has no payout address bound.
var ErrNoBinding = errors.New("no payout address bound")

// WalletService manages session payout address bindings.
type WalletService struct {
	DB *gorm.DB
	// Notifier, when set, confirms successful registrations to the user.
	Notifier notify.Notifier
}

// Bind validates and stores the payout address for sessionKey, replacing any
// prior binding. A confirmation is pushed best-effort; delivery failure never
// fails the registration.
func (s *WalletService) Bind(ctx context.Context, sessionKey, address string) error {
	addr := strings.ToLower(strings.TrimSpace(address))
	if !validAddress(addr) {
		return ErrInvalidAddress
	}
	if err := repo.UpsertBinding(ctx, s.DB, sessionKey, addr); err != nil {
		return err
	}
	if s.Notifier != nil {
		_ = s.Notifier.Push(ctx, sessionKey, fmt.Sprintf("Payout address registered: %s", addr))
	}
	return nil
}

// Binding returns the session's bound payout address, or ErrNoBinding.
func (s *WalletService) Binding(ctx context.Context, sessionKey string) (*domain.WalletBinding, error) {
	b, err := repo.GetBinding(ctx, s.DB, sessionKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoBinding
		}
		return nil, err
	}
	return b, nil
}

// validAddress accepts 0x-prefixed hex of 1..64 nibbles. Aptos addresses are
// 32 bytes but are conventionally written with leading zeros trimmed.
func validAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") {
		return false
	}
	hex := addr[2:]
	if len(hex) == 0 || len(hex) > 64 {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
