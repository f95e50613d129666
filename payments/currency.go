package payments

import "errors"

type Currency string

const (
	CurrencyUSD Currency = "USD"
)

var ErrInvalidCurrency = errors.New("invalid currency. Use 'USD'")

// Validate if the provided currency is supported
func (c Currency) Validate() (err error) {
	switch c {
	case CurrencyUSD:
		return nil
	default:
		return ErrInvalidCurrency
	}
}
