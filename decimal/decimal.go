package decimal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

// Number of fractional digits of the major unit (cents for USD)
const Places = 2

const MinorUnitsPerMajor = 100

var ErrInvalidAmount = errors.New("invalid amount")

// Largest amount accepted in major units
var MaxAmount = Decimal{Value: decimal.New(99_999_999, -Places)}

// Bounds of the parsed representation. Comparing or rescaling values outside
// them costs big integer powers of ten
const (
	MaxLength   = 32
	MinExponent = -18
	MaxExponent = 6
)

func (d *Decimal) checkBounds(s string) (err error) {
	exp := d.Value.Exponent()
	if exp < MinExponent || exp > MaxExponent {
		d.Value = decimal.Zero
		return fmt.Errorf("%w: exponent out of range: %s", ErrInvalidAmount, s)
	}
	return nil
}

type Decimal struct {
	Value decimal.Decimal
}

func (d *Decimal) FromString(s string) (err error) {
	if len(s) > MaxLength {
		return fmt.Errorf("%w: too long", ErrInvalidAmount)
	}

	d.Value, err = decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	return d.checkBounds(s)
}

// FromMinorUnits builds the major unit value of an amount expressed in minor units
func FromMinorUnits[T constraints.Integer](units T) (d Decimal) {
	d.Value = decimal.New(int64(units), -Places)
	return d
}

// ToMinorUnits converts the major unit amount into minor units. Digits beyond the
// second decimal are rounded half away from zero
func (d Decimal) ToMinorUnits() (units int64, err error) {
	err = d.Validate(MaxAmount)
	if err != nil {
		return 0, err
	}

	units = d.Value.Round(Places).Shift(Places).IntPart()
	if units <= 0 {
		return 0, fmt.Errorf("%w: rounds to zero minor units", ErrInvalidAmount)
	}
	return units, nil
}

// Validate checks the amount is positive and not greater than limit
func (d Decimal) Validate(limit Decimal) (err error) {
	if !d.Value.IsPositive() {
		return fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}
	if d.Value.GreaterThan(limit.Value) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, limit)
	}
	return nil
}

// ExceedsPlaces reports if the value carries significant digits beyond the minor unit
func (d Decimal) ExceedsPlaces() (exceeds bool) {
	return !d.Value.Equal(d.Value.Truncate(Places))
}

func (d Decimal) Equal(o Decimal) (equal bool) {
	return d.Value.Equal(o.Value)
}

func (d Decimal) String() (s string) {
	return d.Value.StringFixed(Places)
}

var (
	_ json.Unmarshaler = (*Decimal)(nil)
	_ json.Marshaler   = (*Decimal)(nil)
)

// UnmarshalJSON accepts both JSON numbers and quoted strings
func (d *Decimal) UnmarshalJSON(b []byte) (err error) {
	if string(b) == "null" {
		return nil
	}

	// Two extra bytes for the quotes of string amounts
	if len(b) > MaxLength+2 {
		return fmt.Errorf("%w: too long", ErrInvalidAmount)
	}

	err = d.Value.UnmarshalJSON(b)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
	}
	return d.checkBounds(string(b))
}

func (d Decimal) MarshalJSON() (b []byte, err error) {
	return []byte(d.String()), nil
}

func (d *Decimal) UnmarshalText(b []byte) (err error) {
	return d.FromString(string(b))
}

func (d Decimal) MarshalText() (b []byte, err error) {
	return []byte(d.String()), nil
}
