// Package v211 implements CDR cost calculation for OCPI 2.1.1.
//
// The engine is a pure fold over the CDR's charging periods: per period it
// resolves the active price components from the tariff, prices each CDR
// dimension against them, and threads the running totals through an explicit
// State. Step-size billing is applied only on the occurrences flagged at CDR
// construction (see FlagStepSize).
package v211

import (
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/rounding"
	"ocpi-cost/core/types"
)

// PriceComponent prices a single dimension within a tariff element
type PriceComponent struct {
	// Type is the dimension this component prices
	Type types.DimensionType

	// Price is the cost per unit: per session for FLAT, per kWh for
	// ENERGY, per hour for the time family
	Price decimal.Decimal

	// StepSize is the billing granularity: seconds for the time family,
	// Wh for ENERGY
	StepSize int64

	// PriceRound is applied to every computed cost amount
	PriceRound rounding.Policy

	// StepRound is applied to the step count when quantizing volume
	StepRound rounding.Policy

	// ExactPriceComponent is carried through from the wire format
	ExactPriceComponent *bool
}

// DefaultPriceRound is the rounding applied to costs when the component
// does not specify one: nearest thousandth.
func DefaultPriceRound() rounding.Policy {
	return rounding.Policy{Granularity: rounding.Thousandth, Rule: rounding.RoundNear}
}

// DefaultStepRound is the rounding applied to step counts when the
// component does not specify one: up to the next whole step.
func DefaultStepRound() rounding.Policy {
	return rounding.Policy{Granularity: rounding.Unit, Rule: rounding.RoundUp}
}

// Restrictions gate when a tariff element applies. A nil bound leaves that
// axis unconstrained. The generic duration bounds are fanned out into the
// per-kind bounds at tariff construction, keyed by the element's component
// types.
type Restrictions struct {
	StartTime *types.ClockMinutes
	EndTime   *types.ClockMinutes

	StartDate *time.Time
	EndDate   *time.Time

	MinKwh *decimal.Decimal
	MaxKwh *decimal.Decimal

	// Power bounds are carried but not evaluated by this engine
	MinPower *decimal.Decimal
	MaxPower *decimal.Decimal

	// Generic duration bounds in seconds, as found on the wire
	MinDuration *int64
	MaxDuration *int64

	// Duration bounds for charging time, in seconds
	MinChargeDuration *int64
	MaxChargeDuration *int64

	// Duration bounds for parking time, in seconds
	MinParkingDuration *int64
	MaxParkingDuration *int64

	// Duration bounds for the whole session, in seconds
	MinSessionDuration *int64
	MaxSessionDuration *int64

	DayOfWeek []types.DayOfWeek
}

// TariffElement is a priced, restriction-gated clause of a tariff
type TariffElement struct {
	PriceComponents []PriceComponent
	Restrictions    *Restrictions
}

// Tariff is an ordered list of elements. Element order is meaningful: the
// earliest element that covers a dimension owns it (see activeComponents).
type Tariff struct {
	ID           string
	Currency     string
	TariffAltURL string
	Elements     []TariffElement
}

// NewTariff builds a tariff and runs the construction-time restriction
// fan-out on every element.
func NewTariff(id, currency string, elements []TariffElement) *Tariff {
	t := &Tariff{ID: id, Currency: currency, Elements: elements}
	for i := range t.Elements {
		t.Elements[i].normalizeDurations()
	}
	return t
}

// normalizeDurations copies the generic min/max duration bounds into the
// per-kind bounds selected by the element's component types. The copy is
// unconditional: an element with a TIME component reads its charge-duration
// bounds from the generic fields even when those are absent.
func (e *TariffElement) normalizeDurations() {
	if e.Restrictions == nil {
		return
	}
	r := e.Restrictions
	for i := range e.PriceComponents {
		switch e.PriceComponents[i].Type {
		case types.DimensionTime:
			r.MinChargeDuration = r.MinDuration
			r.MaxChargeDuration = r.MaxDuration
		case types.DimensionParkingTime:
			r.MinParkingDuration = r.MinDuration
			r.MaxParkingDuration = r.MaxDuration
		case types.DimensionSessionTime:
			r.MinSessionDuration = r.MinDuration
			r.MaxSessionDuration = r.MaxDuration
		}
	}
}

// CdrDimension is one measured quantity of a charging period. Volume is
// session-relative: hours for the time family, kWh for energy.
type CdrDimension struct {
	Type   types.DimensionType
	Volume decimal.Decimal

	// ApplyStepSize marks the chronologically last occurrence of the
	// dimension's family; only that occurrence is step-quantized. Set by
	// FlagStepSize during CDR construction.
	ApplyStepSize bool
}

// ChargingPeriod is a segment of the session starting at StartDateTime
type ChargingPeriod struct {
	StartDateTime time.Time
	Dimensions    []CdrDimension
}

// Cdr is a charge detail record: one session's metered usage
type Cdr struct {
	ID       string
	MeterID  string
	Currency string

	// ChargingPeriods in non-decreasing start-time order
	ChargingPeriods []ChargingPeriod

	// Totals as reported by the issuer, kept for reconciliation
	TotalCost        *decimal.Decimal
	TotalEnergy      *decimal.Decimal
	TotalTime        *decimal.Decimal
	TotalParkingTime *decimal.Decimal
}

// NewCdr builds a CDR and runs the step-size back-flagging pass
func NewCdr(id, currency string, periods []ChargingPeriod) *Cdr {
	c := &Cdr{ID: id, Currency: currency, ChargingPeriods: periods}
	FlagStepSize(c.ChargingPeriods)
	return c
}

// FlagStepSize scans charging periods in reverse chronological order and
// marks the first ENERGY dimension and the first TIME-or-PARKING_TIME
// dimension it meets as step-size eligible. Step billing quantizes the
// cumulative volume at the end of the billing relationship, so only the
// last occurrence of each family carries the correction; earlier
// occurrences bill their exact volume. The scan stops once both families
// are flagged. A family that never occurs is simply never flagged.
func FlagStepSize(periods []ChargingPeriod) {
	energyFlagged := false
	timeFlagged := false

	for p := len(periods) - 1; p >= 0; p-- {
		dims := periods[p].Dimensions
		for d := len(dims) - 1; d >= 0; d-- {
			switch dims[d].Type {
			case types.DimensionEnergy:
				if !energyFlagged {
					dims[d].ApplyStepSize = true
					energyFlagged = true
				}
			case types.DimensionTime, types.DimensionParkingTime:
				if !timeFlagged {
					dims[d].ApplyStepSize = true
					timeFlagged = true
				}
			}
		}
		if energyFlagged && timeFlagged {
			return
		}
	}
}
