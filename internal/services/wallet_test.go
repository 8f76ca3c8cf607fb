package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aptosphere/go-swap-backend/internal/repo"
)

func TestWalletService_BindAndRebind(t *testing.T) {
	db, err := repo.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}
	notifier := &fakeNotifier{}
	s := &WalletService{DB: db, Notifier: notifier}
	ctx := context.Background()

	if _, err := s.Binding(ctx, "s1"); !errors.Is(err, ErrNoBinding) {
		t.Fatalf("got %v, want ErrNoBinding", err)
	}

	if err := s.Bind(ctx, "s1", "0xABCdef01"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	b, err := s.Binding(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Address != "0xabcdef01" {
		t.Fatalf("address = %q; want lowercased", b.Address)
	}

	if err := s.Bind(ctx, "s1", "0x42"); err != nil {
		t.Fatal(err)
	}
	b, _ = s.Binding(ctx, "s1")
	if b.Address != "0x42" {
		t.Fatalf("rebind is last-write-wins, got %q", b.Address)
	}

	if !strings.Contains(notifier.joined(), "0xabcdef01") {
		t.Fatalf("expected registration confirmation push, got %q", notifier.joined())
	}
}

func TestWalletService_RejectsMalformedAddresses(t *testing.T) {
	s := &WalletService{}
	bad := []string{
		"",
		"0x",
		"abc123",
		"0xzz",
		"0x" + string(make([]byte, 65)),
		"0x0123456789012345678901234567890123456789012345678901234567890123456789", // > 64 nibbles
	}
	for _, addr := range bad {
		if err := s.Bind(context.Background(), "s1", addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("address %q: got %v, want ErrInvalidAddress", addr, err)
		}
	}
}
