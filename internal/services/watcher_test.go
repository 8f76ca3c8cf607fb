package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// fakeBalances replays a scripted balance sequence per coin type, repeating
// the last value once exhausted.
type fakeBalances struct {
	mu  sync.Mutex
	seq map[string][]string
	err error
}

func (f *fakeBalances) GetBalance(_ context.Context, _, coinType string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := f.seq[coinType]
	if len(s) == 0 {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s[0], 10)
	if !ok {
		panic("bad scripted balance: " + s[0])
	}
	if len(s) > 1 {
		f.seq[coinType] = s[1:]
	}
	return v, nil
}

func aptCoin(t *testing.T) token.Coin {
	t.Helper()
	c, err := token.NewRegistry().Resolve("APT")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newWatcher(chain BalanceReader, timeout time.Duration) *DepositWatcher {
	return &DepositWatcher{
		Chain:        chain,
		Address:      "0xcustodial",
		PollInterval: 2 * time.Millisecond,
		Timeout:      timeout,
		Log:          zerolog.Nop(),
	}
}

func TestWatcher_DetectsGrowthAndDeflatesMargin(t *testing.T) {
	apt := aptCoin(t)
	// Pre-existing balance must not count: baseline 5000000, then the user's
	// 0.1 APT lands.
	chain := &fakeBalances{seq: map[string][]string{
		apt.TypeTag: {"5000000", "5000000", "15000000"},
	}}
	w := newWatcher(chain, time.Second)

	usable, err := w.Await(context.Background(), apt, big.NewInt(10000000))
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	// observed 10000000 minus the 900000 gas margin.
	if usable.String() != "9100000" {
		t.Fatalf("usable = %s", usable)
	}
}

func TestWatcher_AcceptsFeeShavedDeposit(t *testing.T) {
	apt := aptCoin(t)
	// Sender deducted fees: growth is target minus margin exactly.
	chain := &fakeBalances{seq: map[string][]string{
		apt.TypeTag: {"0", "9100000"},
	}}
	w := newWatcher(chain, time.Second)

	usable, err := w.Await(context.Background(), apt, big.NewInt(10000000))
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if usable.String() != "8200000" {
		t.Fatalf("usable = %s", usable)
	}
}

func TestWatcher_TimeoutWithoutDeposit(t *testing.T) {
	apt := aptCoin(t)
	chain := &fakeBalances{seq: map[string][]string{apt.TypeTag: {"0"}}}
	w := newWatcher(chain, 20*time.Millisecond)

	_, err := w.Await(context.Background(), apt, big.NewInt(10000000))
	if !errors.Is(err, ErrDepositTimeout) {
		t.Fatalf("got %v, want ErrDepositTimeout", err)
	}
}

func TestWatcher_TimeoutKeepsPartialDeposit(t *testing.T) {
	apt := aptCoin(t)
	// Growth of 2000000 never reaches the 9100000 threshold but clears the
	// margin, so the window closing still yields a usable amount.
	chain := &fakeBalances{seq: map[string][]string{
		apt.TypeTag: {"0", "2000000"},
	}}
	w := newWatcher(chain, 30*time.Millisecond)

	usable, err := w.Await(context.Background(), apt, big.NewInt(10000000))
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if usable.String() != "1100000" {
		t.Fatalf("usable = %s", usable)
	}
}

func TestWatcher_DustBelowMarginTimesOut(t *testing.T) {
	apt := aptCoin(t)
	chain := &fakeBalances{seq: map[string][]string{
		apt.TypeTag: {"0", "900000"},
	}}
	w := newWatcher(chain, 30*time.Millisecond)

	if _, err := w.Await(context.Background(), apt, big.NewInt(10000000)); !errors.Is(err, ErrDepositTimeout) {
		t.Fatalf("got %v, want ErrDepositTimeout for dust below margin", err)
	}
}

func TestWatcher_ContextCancellation(t *testing.T) {
	apt := aptCoin(t)
	chain := &fakeBalances{seq: map[string][]string{apt.TypeTag: {"0"}}}
	w := newWatcher(chain, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := w.Await(ctx, apt, big.NewInt(10000000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestWatcher_BaselineReadFailure(t *testing.T) {
	apt := aptCoin(t)
	chain := &fakeBalances{err: errors.New("node down")}
	w := newWatcher(chain, time.Second)

	if _, err := w.Await(context.Background(), apt, big.NewInt(1)); err == nil {
		t.Fatal("expected error when baseline read fails")
	}
}
