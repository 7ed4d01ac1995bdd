package service

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are integers in the smallest currency unit, bounded to the signed 128-bit range.
var (
	MaxAmount = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)), 0)
	MinAmount = decimal.NewFromBigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)), 0)
)

// ParseAmount parses a base-10 integer amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmount rejects fractional amounts and amounts outside the 128-bit range.
func CheckAmount(d decimal.Decimal) error {
	if !d.IsInteger() {
		return fmt.Errorf("%w: %s is not a whole number of units", ErrInvalidAmount, d)
	}
	if d.GreaterThan(MaxAmount) || d.LessThan(MinAmount) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d)
	}
	return nil
}

// requirePositive checks that d is a valid amount greater than zero.
func requirePositive(d decimal.Decimal) error {
	if err := CheckAmount(d); err != nil {
		return err
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, d)
	}
	return nil
}

// addAmounts returns a+b, failing when the sum leaves the 128-bit range.
func addAmounts(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if sum.GreaterThan(MaxAmount) || sum.LessThan(MinAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s + %s overflows", ErrInvalidAmount, a, b)
	}
	return sum, nil
}
