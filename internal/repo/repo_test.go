package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/aptosphere/go-swap-backend/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---- SwapRecord ----

func newRecord(t *testing.T, db *gorm.DB, session string) *domain.SwapRecord {
	t.Helper()
	rec, err := CreateSwap(context.Background(), db, &domain.SwapRecord{
		SessionKey:      session,
		SourceToken:     "APT",
		DestToken:       "USDC",
		RequestedAmount: "0.1",
		QuoteOutUnits:   "500000",
	})
	if err != nil {
		t.Fatalf("CreateSwap: %v", err)
	}
	return rec
}

func TestCreateSwap_StartsPendingWithUUID(t *testing.T) {
	db := testDB(t)
	rec := newRecord(t, db, "s1")

	if rec.Status != domain.StatusPendingDeposit {
		t.Fatalf("status = %s", rec.Status)
	}
	if len(rec.ID) != 36 {
		t.Fatalf("expected UUID id, got %q", rec.ID)
	}
	got, err := GetSwap(context.Background(), db, rec.ID)
	if err != nil {
		t.Fatalf("GetSwap: %v", err)
	}
	if got.SessionKey != "s1" || got.SwapTxHash != nil || got.PayoutTxHash != nil {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestAdvanceStatus_HappyPathPersistsStageColumns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := newRecord(t, db, "s1")

	steps := []struct {
		next domain.SwapStatus
		set  map[string]any
	}{
		{domain.StatusDepositConfirmed, map[string]any{"deposit_units": "9100000"}},
		{domain.StatusSwapSubmitted, map[string]any{"swap_tx_hash": "0xswap"}},
		{domain.StatusSwapConfirmed, map[string]any{"output_units": "512345"}},
		{domain.StatusPayoutSubmitted, map[string]any{"payout_tx_hash": "0xpayout"}},
		{domain.StatusCompleted, nil},
	}
	for _, s := range steps {
		if err := AdvanceStatus(ctx, db, rec.ID, s.next, s.set); err != nil {
			t.Fatalf("AdvanceStatus(%s): %v", s.next, err)
		}
	}

	got, _ := GetSwap(ctx, db, rec.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if got.SwapTxHash == nil || *got.SwapTxHash != "0xswap" {
		t.Fatalf("swap hash = %v", got.SwapTxHash)
	}
	if got.PayoutTxHash == nil || *got.PayoutTxHash != "0xpayout" {
		t.Fatalf("payout hash = %v", got.PayoutTxHash)
	}
	if got.DepositUnits == nil || *got.DepositUnits != "9100000" {
		t.Fatalf("deposit units = %v", got.DepositUnits)
	}
}

func TestAdvanceStatus_RefusesBackwardAndSkippedMoves(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := newRecord(t, db, "s1")

	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusSwapSubmitted, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("skipping a stage: expected ErrIllegalTransition, got %v", err)
	}

	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusDepositConfirmed, nil); err != nil {
		t.Fatal(err)
	}
	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusPendingDeposit, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("backward move: expected ErrIllegalTransition, got %v", err)
	}
}

func TestAdvanceStatus_TerminalIsFinal(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := newRecord(t, db, "s1")

	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusTimedOut, nil); err != nil {
		t.Fatal(err)
	}
	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusDepositConfirmed, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition out of terminal state, got %v", err)
	}
}

func TestHasActiveSwap(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	active, err := HasActiveSwap(ctx, db, "s1")
	if err != nil || active {
		t.Fatalf("expected no active swap, got %v / %v", active, err)
	}

	rec := newRecord(t, db, "s1")
	if active, _ = HasActiveSwap(ctx, db, "s1"); !active {
		t.Fatal("expected active swap")
	}

	if err := AdvanceStatus(ctx, db, rec.ID, domain.StatusFailed, map[string]any{"failure_detail": "deposit: boom"}); err != nil {
		t.Fatal(err)
	}
	if active, _ = HasActiveSwap(ctx, db, "s1"); active {
		t.Fatal("terminal record should not count as active")
	}
}

func TestListSwapsPage_AuditTrailOrdering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		newRecord(t, db, "s1")
	}
	newRecord(t, db, "other")

	total, err := CountSwaps(ctx, db, "s1")
	if err != nil || total != 3 {
		t.Fatalf("CountSwaps = %d, %v", total, err)
	}
	page, err := ListSwapsPage(ctx, db, "s1", 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListSwapsPage = %d items, %v", len(page), err)
	}
}

// ---- SwapIntent ----

func TestUpsertIntent_ReplacesPriorIntent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := UpsertIntent(ctx, db, &domain.SwapIntent{
		SessionKey: "s1", SourceToken: "APT", DestToken: "USDC", Amount: "0.1",
		QuoteInUnits: "10000000", QuoteOutUnits: "500000",
	}); err != nil {
		t.Fatal(err)
	}
	// Same session asks again with a different pair: replaces, not appends.
	if err := UpsertIntent(ctx, db, &domain.SwapIntent{
		SessionKey: "s1", SourceToken: "USDT", DestToken: "APT", Amount: "25",
	}); err != nil {
		t.Fatal(err)
	}

	got, err := GetIntent(ctx, db, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceToken != "USDT" || got.Amount != "25" {
		t.Fatalf("intent not replaced: %+v", got)
	}
	if got.QuoteOutUnits != "" {
		t.Fatalf("stale quote survived replacement: %q", got.QuoteOutUnits)
	}

	var n int64
	db.Model(&domain.SwapIntent{}).Where("session_key = ?", "s1").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one intent row, got %d", n)
	}
}

func TestDeleteIntent_ConsumesAndReportsMissing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := UpsertIntent(ctx, db, &domain.SwapIntent{
		SessionKey: "s1", SourceToken: "APT", DestToken: "USDC", Amount: "1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := DeleteIntent(ctx, db, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetIntent(ctx, db, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := DeleteIntent(ctx, db, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}

// ---- WalletBinding ----

func TestUpsertBinding_LastWriteWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := UpsertBinding(ctx, db, "s1", "0xaaa"); err != nil {
		t.Fatal(err)
	}
	if err := UpsertBinding(ctx, db, "s1", "0xbbb"); err != nil {
		t.Fatal(err)
	}

	b, err := GetBinding(ctx, db, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Address != "0xbbb" {
		t.Fatalf("address = %q; want 0xbbb", b.Address)
	}

	var n int64
	db.Model(&domain.WalletBinding{}).Where("session_key = ?", "s1").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one binding row, got %d", n)
	}
}

func TestGetBinding_Missing(t *testing.T) {
	db := testDB(t)
	if _, err := GetBinding(context.Background(), db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
