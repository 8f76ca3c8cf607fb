// Package rate computes expected swap output for a token pair from the
// liquidswap uncorrelated-curve pool reserves. It performs a single on-chain
// read per quote and never retries: if the pool cannot be read or returns
// non-numeric reserves, the error is surfaced to the caller, who may simply
// ask again later.
package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/aptosphere/go-swap-backend/internal/token"
)

// ErrPoolUnavailable means the pool resource could not be read or decoded.
var ErrPoolUnavailable = errors.New("liquidity pool unavailable")

// Liquidswap mainnet resource account holding the pool resources.
const (
	defaultResourceAccount = "0x05a97986a9d031c4567e15b797be516910cfcb4156312482efc6a19c0a30c948"
	defaultModuleAccount   = "0x190d44266241744264b964a37b8f09863167a12d3e70cda39376cfb4e3561e12"

	// feeNumerator/feeDenominator encode the 0.3% pool fee.
	feeNumerator   = 997
	feeDenominator = 1000
)

// ResourceReader reads a Move resource's data object from an account.
type ResourceReader interface {
	GetResource(ctx context.Context, address, resourceType string) (json.RawMessage, error)
}

// PoolSource quotes swaps against liquidswap's uncorrelated pools.
type PoolSource struct {
	chain           ResourceReader
	resourceAccount string
	moduleAccount   string
}

// NewPoolSource returns a PoolSource over the mainnet liquidswap deployment.
func NewPoolSource(chain ResourceReader) *PoolSource {
	return &PoolSource{
		chain:           chain,
		resourceAccount: defaultResourceAccount,
		moduleAccount:   defaultModuleAccount,
	}
}

// CalculateRate returns the expected output base units for swapping
// inUnits of from into to, applying the constant-product formula with the
// pool fee. One external round trip; no internal retry.
func (s *PoolSource) CalculateRate(ctx context.Context, from, to token.Coin, inUnits *big.Int) (*big.Int, error) {
	if inUnits == nil || inUnits.Sign() <= 0 {
		return nil, fmt.Errorf("input amount must be positive")
	}

	// Pools are registered once per pair under a canonical coin ordering, so
	// the reserve that corresponds to the input side depends on which way
	// round the pair is stored.
	x, y := from.TypeTag, to.TypeTag
	inIsX := coinsOrdered(x, y)
	if !inIsX {
		x, y = y, x
	}

	poolType := fmt.Sprintf("%s::liquidity_pool::LiquidityPool<%s, %s, %s::curves::Uncorrelated>",
		s.moduleAccount, x, y, s.moduleAccount)

	data, err := s.chain.GetResource(ctx, s.resourceAccount, poolType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrPoolUnavailable, from.Symbol, to.Symbol, err)
	}

	var pool struct {
		CoinXReserve struct {
			Value string `json:"value"`
		} `json:"coin_x_reserve"`
		CoinYReserve struct {
			Value string `json:"value"`
		} `json:"coin_y_reserve"`
	}
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("%w: decode pool: %v", ErrPoolUnavailable, err)
	}

	reserveX, okX := new(big.Int).SetString(pool.CoinXReserve.Value, 10)
	reserveY, okY := new(big.Int).SetString(pool.CoinYReserve.Value, 10)
	if !okX || !okY {
		return nil, fmt.Errorf("%w: non-numeric reserves", ErrPoolUnavailable)
	}

	reserveIn, reserveOut := reserveX, reserveY
	if !inIsX {
		reserveIn, reserveOut = reserveY, reserveX
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty reserves", ErrPoolUnavailable)
	}

	return constantProductOut(inUnits, reserveIn, reserveOut), nil
}

// constantProductOut computes out = in*fee*Rout / (Rin*den + in*fee) in
// arbitrary precision, so no intermediate ever overflows or rounds.
func constantProductOut(in, reserveIn, reserveOut *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(in, big.NewInt(feeNumerator))
	num := new(big.Int).Mul(inWithFee, reserveOut)
	den := new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator))
	den.Add(den, inWithFee)
	return num.Div(num, den)
}

// coinsOrdered reports whether coin type x sorts before y under the pool
// registry's canonical ordering (shorter tag first, then lexicographic —
// mirroring liquidswap's coin comparison).
func coinsOrdered(x, y string) bool {
	if len(x) != len(y) {
		return len(x) < len(y)
	}
	return x < y
}
