// Package token provides the static registry of supported Aptos coins and the
// decimal ↔ base-unit conversion helpers used by every other component.
//
// All amount arithmetic inside the application happens in integer base units
// (the on-chain representation, scaled by 10^decimals). Human-readable decimal
// amounts only exist at the I/O boundary: they are converted to base units on
// the way in and back to decimals on the way out, so floating-point error can
// never accumulate across rate computations.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownToken is returned by Resolve when a symbol is not in the
// supported set.
var ErrUnknownToken = errors.New("unknown token")

// Coin describes one supported asset: its Move coin type tag, the number of
// decimal places of its on-chain representation, and the fee margin reserved
// from deposits in the asset's own base units.
type Coin struct {
	// Symbol is the upper-case ticker ("APT", "USDC", ...).
	Symbol string
	// TypeTag is the fully qualified Move coin type.
	TypeTag string
	// Decimals is the scale of the base-unit representation.
	Decimals int32
	// GasMargin is withheld from observed deposits so the custodial account
	// can still pay for the swap and payout transactions.
	GasMargin *big.Int
}

// Registry maps token symbols to coin metadata. The supported set is fixed;
// precision varies per asset and must always be looked up, never assumed.
type Registry struct {
	coins map[string]Coin
}

// NewRegistry returns the mainnet registry: APT (8 decimals) and the four
// LayerZero-bridged stables/wrapped assets (6 decimals each).
func NewRegistry() *Registry {
	const bridged = "0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::"

	r := &Registry{coins: make(map[string]Coin)}
	r.add(Coin{Symbol: "APT", TypeTag: "0x1::aptos_coin::AptosCoin", Decimals: 8, GasMargin: big.NewInt(900000)})
	for _, sym := range []string{"USDC", "USDT", "WETH", "USDD"} {
		r.add(Coin{Symbol: sym, TypeTag: bridged + sym, Decimals: 6, GasMargin: big.NewInt(50)})
	}
	return r
}

func (r *Registry) add(c Coin) { r.coins[c.Symbol] = c }

// Resolve looks up a coin by symbol (case-insensitive). It returns
// ErrUnknownToken when the symbol is not supported.
func (r *Registry) Resolve(symbol string) (Coin, error) {
	c, ok := r.coins[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Coin{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}
	return c, nil
}

// Symbols returns the supported symbols in no particular order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.coins))
	for s := range r.coins {
		out = append(out, s)
	}
	return out
}

// ToBaseUnits converts a human-readable decimal amount into integer base
// units, truncating anything below one base unit.
func (c Coin) ToBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(c.Decimals).Truncate(0).BigInt()
}

// FromBaseUnits converts integer base units back into a decimal amount.
func (c Coin) FromBaseUnits(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -c.Decimals)
}
