// Package amount converts between uint64 base units and the 18-decimal
// string form used at the API and CLI boundaries ("1.5" == 1.5e18 units).
package amount

import (
	"fmt"
	"math/big"

	"github.com/sewing848/decayd/internal/ledger"
	"github.com/shopspring/decimal"
)

// Parse converts a decimal token string into base units. It rejects
// negative values, more than 18 fractional digits, and values that do not
// fit in a uint64.
func Parse(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q: must not be negative", s)
	}

	units := d.Shift(ledger.Decimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %q: more than %d decimal places", s, ledger.Decimals)
	}

	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q: exceeds representable range", s)
	}
	return bi.Uint64(), nil
}

// Format renders base units as a decimal token string.
func Format(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -ledger.Decimals).String()
}
