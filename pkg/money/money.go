// Package money provides a non-negative monetary amount expressed in the
// smallest currency unit (e.g. cents). Arithmetic never produces a negative
// amount: Sub reports an error instead of underflowing.
package money

import "fmt"

// Money is an amount in the smallest currency unit. The zero value is valid.
type Money int64

// New returns a Money for amount, or an error if amount is negative.
func New(amount int64) (Money, error) {
	if amount < 0 {
		return 0, fmt.Errorf("money: amount must be non-negative, got %d", amount)
	}
	return Money(amount), nil
}

// MustNew is like New but panics on a negative amount. Intended for constants
// and test fixtures.
func MustNew(amount int64) Money {
	m, err := New(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns m - other, or an error if the result would be negative.
// Neither operand is modified on failure.
func (m Money) Sub(other Money) (Money, error) {
	if other > m {
		return 0, fmt.Errorf("money: cannot subtract %d from %d", other, m)
	}
	return m - other, nil
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Int64 returns the raw amount in the smallest currency unit.
func (m Money) Int64() int64 { return int64(m) }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}
