package sqlite

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseDecimal converts a stored TEXT amount back to a decimal.
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed stored decimal %q: %w", s, err)
	}
	return d, nil
}
