// Package v221 implements CDR cost calculation for OCPI 2.2.1.
//
// Unlike the 2.1.1 engine, costs accumulate unrounded and the step-size
// correction is a single settlement pass at the end of the session. VAT is
// accumulated additively per component and both totals are quantized to
// four decimal places only at the currency boundary.
package v221

import (
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/types"
)

// Price is a monetary amount with and without VAT
type Price struct {
	ExclVat decimal.Decimal `json:"excl_vat"`
	InclVat decimal.Decimal `json:"incl_vat"`
}

// PriceComponent prices a single dimension within a tariff element
type PriceComponent struct {
	Type     types.DimensionType
	Price    decimal.Decimal
	Vat      *decimal.Decimal
	StepSize int64
}

// Restrictions gate when a tariff element applies. A nil bound leaves that
// axis unconstrained. Power, current, energy, and reservation bounds are
// carried for completeness but not evaluated by this engine.
type Restrictions struct {
	StartTime *types.ClockMinutes
	EndTime   *types.ClockMinutes

	// ISO calendar dates, compared lexically against the local date
	StartDate *string
	EndDate   *string

	MinKwh     *decimal.Decimal
	MaxKwh     *decimal.Decimal
	MinCurrent *decimal.Decimal
	MaxCurrent *decimal.Decimal
	MinPower   *decimal.Decimal
	MaxPower   *decimal.Decimal

	// Session duration bounds in seconds
	MinDuration *int64
	MaxDuration *int64

	DayOfWeek []types.DayOfWeek

	Reservation *string
}

// TariffElement is a priced, restriction-gated clause of a tariff
type TariffElement struct {
	PriceComponents []PriceComponent
	Restrictions    *Restrictions
}

// Tariff is an ordered list of elements
type Tariff struct {
	ID       string
	Currency string
	Elements []TariffElement

	// MinPrice and MaxPrice are carried through from the wire format;
	// session price clamping is not part of this engine.
	MinPrice *Price
	MaxPrice *Price

	StartDateTime *time.Time
	EndDateTime   *time.Time
	LastUpdated   time.Time
}

// CdrDimension is one measured quantity of a charging period
type CdrDimension struct {
	Type   types.DimensionType
	Volume decimal.Decimal
}

// ChargingPeriod is a segment of the session. Its end is implicit: the
// next period's start, or the CDR's end for the last period.
type ChargingPeriod struct {
	StartDateTime time.Time
	Dimensions    []CdrDimension
	TariffID      string
}

// CdrLocation identifies where the session took place. Country is the
// ISO 3166-1 alpha-3 code used to resolve the local time zone.
type CdrLocation struct {
	ID      string
	Name    string
	Address string
	City    string
	Country string
}

// Cdr is a charge detail record: one session's metered usage
type Cdr struct {
	ID            string
	StartDateTime time.Time
	EndDateTime   time.Time
	Currency      string

	Location *CdrLocation

	// Tariffs embedded in the CDR; the first is the fallback when the
	// caller supplies none
	Tariffs []Tariff

	// ChargingPeriods in non-decreasing start-time order
	ChargingPeriods []ChargingPeriod

	// Totals as reported by the issuer, kept for reconciliation
	TotalCost        *Price
	TotalEnergy      decimal.Decimal
	TotalTime        decimal.Decimal
	TotalParkingTime *decimal.Decimal

	LastUpdated time.Time
}

// country returns the location country code, or "" when unknown
func (c *Cdr) country() string {
	if c.Location == nil {
		return ""
	}
	return c.Location.Country
}
