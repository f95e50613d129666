package decimal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func Test_MinorUnits(t *testing.T) {
	t.Run("Succeed", func(t *testing.T) {
		type Test struct {
			Reference string
			Expect    int64
		}
		tests := []Test{
			{Reference: `0.01`, Expect: 1},
			{Reference: `0.1`, Expect: 10},
			{Reference: `1`, Expect: 100},
			{Reference: `1.00`, Expect: 100},
			{Reference: `5.00`, Expect: 500},
			{Reference: `12.50`, Expect: 1250},
			{Reference: `19.99`, Expect: 1999},
			{Reference: `100`, Expect: 10_000},
			{Reference: `123.45`, Expect: 12_345},
			{Reference: `999999.99`, Expect: 99_999_999},
			{Reference: `0.005`, Expect: 1},
			{Reference: `2.675`, Expect: 268},
			{Reference: `2.674`, Expect: 267},
			{Reference: `10.125`, Expect: 1013},
		}
		for _, test := range tests {
			t.Run(test.Reference, func(t *testing.T) {
				assertions := assert.New(t)

				var d decimal.Decimal
				err := d.FromString(test.Reference)
				assertions.Nil(err, "failed to parse")

				units, err := d.ToMinorUnits()
				assertions.Nil(err, "failed to convert")
				assertions.Equal(test.Expect, units)
			})
		}
	})
	t.Run("Fail", func(t *testing.T) {
		tests := []string{`0`, `0.00`, `-1`, `-0.01`, `0.004`, `1000000`, `999999.995`, `1000000.00`}
		for _, test := range tests {
			t.Run(test, func(t *testing.T) {
				assertions := assert.New(t)

				var d decimal.Decimal
				err := d.FromString(test)
				assertions.Nil(err, "failed to parse")

				_, err = d.ToMinorUnits()
				assertions.True(errors.Is(err, decimal.ErrInvalidAmount), "expecting invalid amount: %v", err)
			})
		}
	})
}

func Test_RoundTrip(t *testing.T) {
	assertions := assert.New(t)

	var samples []int64
	for units := int64(1); units <= 100_000; units += 7 {
		samples = append(samples, units)
	}
	samples = append(samples, 99_999_998, 99_999_999, 12_345_678)

	for _, units := range samples {
		d := decimal.FromMinorUnits(units)

		var parsed decimal.Decimal
		err := parsed.FromString(d.String())
		if !assertions.Nil(err, "failed to parse %d", units) {
			return
		}

		back, err := parsed.ToMinorUnits()
		if !assertions.Nil(err, "failed to convert %s", d) {
			return
		}
		if !assertions.Equal(units, back, "round trip of %s", d) {
			return
		}
		assertions.True(parsed.Equal(decimal.FromMinorUnits(back)))
	}
}

func Test_Validate(t *testing.T) {
	assertions := assert.New(t)

	limit := decimal.FromMinorUnits(uint32(10_000))

	var d decimal.Decimal
	assertions.Nil(d.FromString("100.00"))
	assertions.Nil(d.Validate(limit))

	assertions.Nil(d.FromString("100.01"))
	assertions.ErrorIs(d.Validate(limit), decimal.ErrInvalidAmount)

	var zero decimal.Decimal
	assertions.ErrorIs(zero.Validate(limit), decimal.ErrInvalidAmount)
}

func Test_ExceedsPlaces(t *testing.T) {
	type Test struct {
		Reference string
		Expect    bool
	}
	tests := []Test{
		{Reference: `12`, Expect: false},
		{Reference: `12.5`, Expect: false},
		{Reference: `12.50`, Expect: false},
		{Reference: `12.500`, Expect: false},
		{Reference: `12.501`, Expect: true},
		{Reference: `0.001`, Expect: true},
	}
	for _, test := range tests {
		t.Run(test.Reference, func(t *testing.T) {
			assertions := assert.New(t)

			var d decimal.Decimal
			assertions.Nil(d.FromString(test.Reference))
			assertions.Equal(test.Expect, d.ExceedsPlaces())
		})
	}
}

func Test_Codecs(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		assertions := assert.New(t)

		type Body struct {
			Amount decimal.Decimal `json:"amount"`
		}
		for _, raw := range []string{`{"amount":12.5}`, `{"amount":"12.50"}`} {
			var body Body
			err := json.Unmarshal([]byte(raw), &body)
			assertions.Nil(err, "failed to unmarshal %s", raw)
			assertions.Equal("12.50", body.Amount.String())

			out, err := json.Marshal(body)
			assertions.Nil(err, "failed to marshal")
			assertions.Equal(`{"amount":12.50}`, string(out))
		}

		var body Body
		err := json.Unmarshal([]byte(`{"amount":"twelve"}`), &body)
		assertions.NotNil(err)
	})
	t.Run("YAML", func(t *testing.T) {
		assertions := assert.New(t)

		type Config struct {
			Max decimal.Decimal `yaml:"max"`
		}
		var config Config
		err := yaml.Unmarshal([]byte("max: 999999.99\n"), &config)
		assertions.Nil(err, "failed to unmarshal")
		assertions.True(config.Max.Equal(decimal.MaxAmount), fmt.Sprint(config.Max))
	})
}

func Test_Bounds(t *testing.T) {
	t.Run("Succeed", func(t *testing.T) {
		tests := []string{`1e6`, `1e-2`, `12.500000000000000000`, `0.000000000000000001`, `999999.99`}
		for _, test := range tests {
			t.Run(test, func(t *testing.T) {
				assertions := assert.New(t)

				var d decimal.Decimal
				assertions.Nil(d.FromString(test))
			})
		}
	})
	t.Run("Fail", func(t *testing.T) {
		tests := []string{
			`1e-100000000`,
			`1e100000000`,
			`1e7`,
			`1e-19`,
			`0.0000000000000000001`,
			`1234567890123456789012345678901234567890`,
		}
		for _, test := range tests {
			t.Run(test, func(t *testing.T) {
				assertions := assert.New(t)

				start := time.Now()

				var d decimal.Decimal
				assertions.ErrorIs(d.FromString(test), decimal.ErrInvalidAmount)
				assertions.ErrorIs(json.Unmarshal([]byte(test), &d), decimal.ErrInvalidAmount)
				assertions.ErrorIs(json.Unmarshal([]byte(`"`+test+`"`), &d), decimal.ErrInvalidAmount)
				assertions.Less(time.Since(start), time.Second)
			})
		}
	})
}
