package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a decimal amount kept in its textual form so that no precision is
// lost on the way through the system.
type Price string

const (
	maxPriceScale  = 2
	maxPriceDigits = 10
)

var (
	errPriceEmpty    = errors.New("price is required")
	errPriceFormat   = errors.New("price must be a decimal number")
	errPriceNegative = errors.New("price must not be negative")
	errPriceScale    = errors.New("price must have at most 2 decimal places")
	errPriceTooLarge = errors.New("price must have at most 10 digits")
)

// Decimal parses the price.
func (p Price) Decimal() (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return decimal.Decimal{}, errPriceEmpty
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errPriceFormat
	}
	return d, nil
}

// Validate checks that p fits a numeric(10,2) column.
func (p Price) Validate() error {
	d, err := p.Decimal()
	if err != nil {
		return err
	}
	if d.IsNegative() {
		return errPriceNegative
	}
	if d.Exponent() < -maxPriceScale {
		return errPriceScale
	}
	if len(d.Coefficient().String()) > maxPriceDigits {
		return errPriceTooLarge
	}
	return nil
}

// UnmarshalJSON accepts both "299.99" and 299.99 without passing through float64.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errPriceFormat
	}
	*p = Price(n.String())
	return nil
}
