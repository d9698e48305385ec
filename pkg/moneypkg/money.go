// Package moneypkg provides parsing and validation of money amounts.
package moneypkg

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxScale is the number of decimal places stored by the ledger.
const MaxScale = 4

// Limit bounds amounts and balances from above; the ledger stores numeric(24, 4).
var Limit = decimal.New(1, 20)

var (
	// ErrMalformedAmount indicates that the amount is not a decimal number.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrNonPositiveAmount indicates that the amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrAmountScale indicates that the amount has more decimal places than the ledger keeps.
	ErrAmountScale = errors.New("amount has too many decimal places")
	// ErrAmountTooLarge indicates that the amount does not fit the ledger.
	ErrAmountTooLarge = errors.New("amount is too large")
)

// Check reports whether amount can be moved by the ledger.
func Check(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	if !amount.Equal(amount.Truncate(MaxScale)) {
		return ErrAmountScale
	}

	if !Fits(amount) {
		return ErrAmountTooLarge
	}

	return nil
}

// Fits reports whether the ledger can hold v as a balance.
func Fits(v decimal.Decimal) bool {
	return v.LessThan(Limit)
}

// Parse converts s into a positive amount.
func Parse(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}

	if err := Check(amount); err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// ValidAmount validates whether the field holds a positive amount.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	_, err := Parse(fl.Field().String())
	return err == nil
}
