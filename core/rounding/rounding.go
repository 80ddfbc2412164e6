// Package rounding - parameterized decimal rounding for tariff math.
// Every rounding point in the engines is an explicit (granularity, rule)
// pair; nothing rounds implicitly.
package rounding

import (
	"github.com/shopspring/decimal"

	"ocpi-cost/internal/errors"
)

// Granularity selects the decimal place a value is rounded to
type Granularity string

const (
	// Unit rounds to whole units
	Unit Granularity = "UNIT"

	// Tenth rounds to one decimal place
	Tenth Granularity = "TENTH"

	// Hundredth rounds to two decimal places
	Hundredth Granularity = "HUNDREDTH"

	// Thousandth rounds to three decimal places
	Thousandth Granularity = "THOUSANDTH"
)

// Rule selects the direction of rounding
type Rule string

const (
	// RoundUp rounds toward positive infinity (ceiling)
	RoundUp Rule = "ROUND_UP"

	// RoundDown rounds toward negative infinity (floor)
	RoundDown Rule = "ROUND_DOWN"

	// RoundNear rounds to the nearest value, halves away from zero
	RoundNear Rule = "ROUND_NEAR"
)

// Policy pairs a granularity with a rule
type Policy struct {
	Granularity Granularity `json:"round_granularity"`
	Rule        Rule        `json:"round_rule"`
}

// Decimals returns the number of decimal places for a granularity
func (g Granularity) Decimals() (int32, error) {
	switch g {
	case Unit:
		return 0, nil
	case Tenth:
		return 1, nil
	case Hundredth:
		return 2, nil
	case Thousandth:
		return 3, nil
	}
	return 0, errors.Newf(errors.TypeRounding, "unknown rounding granularity %q", string(g))
}

// Valid reports whether the rule is a known rounding rule
func (r Rule) Valid() bool {
	switch r {
	case RoundUp, RoundDown, RoundNear:
		return true
	}
	return false
}

// Apply rounds v according to the policy. An unrecognized granularity or
// rule is a configuration fault: it aborts the calculation rather than
// producing a silently wrong amount.
func Apply(v decimal.Decimal, p Policy) (decimal.Decimal, error) {
	decimals, err := p.Granularity.Decimals()
	if err != nil {
		return decimal.Zero, err
	}

	switch p.Rule {
	case RoundUp:
		return v.Shift(decimals).Ceil().Shift(-decimals), nil
	case RoundDown:
		return v.Shift(decimals).Floor().Shift(-decimals), nil
	case RoundNear:
		return v.Round(decimals), nil
	}
	return decimal.Zero, errors.Newf(errors.TypeRounding, "unknown rounding rule %q", string(p.Rule))
}
