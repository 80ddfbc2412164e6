package v211

import (
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/rounding"
	"ocpi-cost/core/types"
)

// activeComponents holds up to one price component per dimension slot for
// one charging period. Slots may be filled by different elements.
type activeComponents struct {
	flat    *PriceComponent
	energy  *PriceComponent
	parking *PriceComponent
	time    *PriceComponent
}

func (c *activeComponents) complete() bool {
	return c.flat != nil && c.energy != nil && c.parking != nil && c.time != nil
}

// activeComponents resolves the components that price the current period.
// Elements are scanned in listed order; each element whose restrictions
// pass claims the dimension slots still open. A SESSION_TIME component
// claims both time slots when neither is taken. The scan stops early once
// all four slots are filled. The result can layer components from several
// elements; a slot left open means that dimension is free for this period.
func (t *Tariff) activeComponents(st *State) activeComponents {
	var comps activeComponents

	for i := range t.Elements {
		element := &t.Elements[i]
		if !element.isActive(st) {
			continue
		}

		for j := range element.PriceComponents {
			pc := &element.PriceComponents[j]
			switch {
			case comps.flat == nil && pc.Type == types.DimensionFlat:
				comps.flat = pc
			case comps.energy == nil && pc.Type == types.DimensionEnergy:
				comps.energy = pc
			case comps.parking == nil && pc.Type == types.DimensionParkingTime:
				comps.parking = pc
			case comps.time == nil && pc.Type == types.DimensionTime:
				comps.time = pc
			case comps.time == nil && comps.parking == nil && pc.Type == types.DimensionSessionTime:
				comps.parking = pc
				comps.time = pc
			}

			if comps.complete() {
				return comps
			}
		}
	}

	return comps
}

// BilledDimension is a CDR dimension annotated with the volume actually
// billed and its cost. Input dimensions are never mutated; the pricer
// returns these as new values.
type BilledDimension struct {
	Type          types.DimensionType
	Volume        decimal.Decimal
	BilledVolume  decimal.Decimal
	Cost          decimal.Decimal
	ApplyStepSize bool
}

// PeriodCost is the priced view of one charging period
type PeriodCost struct {
	StartDateTime time.Time
	Dimensions    []BilledDimension
}

// State is the accumulator threaded through the period fold. All totals
// are session-cumulative; volume totals are raw (unquantized), billed
// totals include step-size quantization.
type State struct {
	ParkingTime       decimal.Decimal
	BilledParkingTime decimal.Decimal
	ParkingCost       decimal.Decimal

	ChargingTime       decimal.Decimal
	BilledChargingTime decimal.Decimal
	ChargingCost       decimal.Decimal

	Energy       decimal.Decimal
	BilledEnergy decimal.Decimal
	EnergyCost   decimal.Decimal

	FlatCost  decimal.Decimal
	TotalCost decimal.Decimal

	// StartDateTime is the cursor: the start of the period being priced
	StartDateTime time.Time

	// Periods is the per-period breakdown, in order
	Periods []PeriodCost
}

func (s *State) updateDimension(d BilledDimension) {
	switch d.Type {
	case types.DimensionEnergy:
		s.Energy = s.Energy.Add(d.Volume)
		s.BilledEnergy = s.BilledEnergy.Add(d.BilledVolume)
		s.EnergyCost = s.EnergyCost.Add(d.Cost)
	case types.DimensionParkingTime:
		s.ParkingTime = s.ParkingTime.Add(d.Volume)
		s.BilledParkingTime = s.BilledParkingTime.Add(d.BilledVolume)
		s.ParkingCost = s.ParkingCost.Add(d.Cost)
	case types.DimensionTime:
		s.ChargingTime = s.ChargingTime.Add(d.Volume)
		s.BilledChargingTime = s.BilledChargingTime.Add(d.BilledVolume)
		s.ChargingCost = s.ChargingCost.Add(d.Cost)
	}
}

// stepFactor converts a dimension's natural unit to its step-size unit:
// hours to seconds for the time family, kWh to Wh for energy.
func stepFactor(t types.DimensionType) decimal.Decimal {
	switch t {
	case types.DimensionTime, types.DimensionParkingTime:
		return decimal.NewFromInt(3600)
	case types.DimensionEnergy:
		return decimal.NewFromInt(1000)
	}
	return decimal.NewFromInt(1)
}

// billedVolume returns the volume to bill for one dimension occurrence.
// Unflagged occurrences bill their raw volume. The flagged occurrence
// bills the step-quantized cumulative total minus the cumulative total
// billed so far: quantize((prior+volume)*factor/step) * step/factor - prior.
func billedVolume(d CdrDimension, comp *PriceComponent, priorTotal decimal.Decimal) (decimal.Decimal, error) {
	if !d.ApplyStepSize || comp.StepSize <= 0 {
		return d.Volume, nil
	}

	factor := stepFactor(d.Type)
	step := decimal.NewFromInt(comp.StepSize)

	steps := d.Volume.Add(priorTotal).Mul(factor).Div(step)
	roundedSteps, err := rounding.Apply(steps, comp.StepRound)
	if err != nil {
		return decimal.Zero, err
	}

	return roundedSteps.Mul(step).Div(factor).Sub(priorTotal), nil
}

// priceDimension prices one dimension occurrence against the period's
// active components and the state so far. A dimension with no owning
// component is billed as free; that is policy, not an error.
func priceDimension(d CdrDimension, comps activeComponents, st *State) (BilledDimension, error) {
	billed := BilledDimension{
		Type:          d.Type,
		Volume:        d.Volume,
		ApplyStepSize: d.ApplyStepSize,
	}

	var comp *PriceComponent
	var priorTotal decimal.Decimal
	switch d.Type {
	case types.DimensionEnergy:
		comp = comps.energy
		priorTotal = st.Energy
	case types.DimensionParkingTime:
		comp = comps.parking
		priorTotal = st.ParkingTime
	case types.DimensionTime:
		comp = comps.time
		priorTotal = st.ChargingTime
	}

	if comp == nil {
		return billed, nil
	}

	volume, err := billedVolume(d, comp, priorTotal)
	if err != nil {
		return billed, err
	}
	billed.BilledVolume = volume

	cost, err := rounding.Apply(comp.Price.Mul(volume), comp.PriceRound)
	if err != nil {
		return billed, err
	}
	billed.Cost = cost

	return billed, nil
}

// Pricer calculates the cost of one CDR against one tariff
type Pricer struct {
	cdr    *Cdr
	tariff *Tariff
}

// NewPricer creates a pricer. The CDR and tariff are not retained beyond
// the calculation.
func NewPricer(cdr *Cdr, tariff *Tariff) *Pricer {
	return &Pricer{cdr: cdr, tariff: tariff}
}

// Calculate walks the charging periods in order and returns the final
// accumulator state, including the per-period breakdown.
func (p *Pricer) Calculate() (*State, error) {
	st := &State{}
	hasFlatFee := false

	for _, period := range p.cdr.ChargingPeriods {
		st.StartDateTime = period.StartDateTime
		comps := p.tariff.activeComponents(st)

		// FLAT is charged at most once per session, on the first
		// period that resolves a flat component.
		if comps.flat != nil && !hasFlatFee {
			fixed, err := rounding.Apply(comps.flat.Price, comps.flat.PriceRound)
			if err != nil {
				return nil, err
			}
			st.FlatCost = fixed
			st.TotalCost = st.TotalCost.Add(fixed)
			hasFlatFee = true
		}

		pc := PeriodCost{StartDateTime: period.StartDateTime}
		for _, dim := range period.Dimensions {
			billed, err := priceDimension(dim, comps, st)
			if err != nil {
				return nil, err
			}
			st.TotalCost = st.TotalCost.Add(billed.Cost)
			st.updateDimension(billed)
			pc.Dimensions = append(pc.Dimensions, billed)
		}
		st.Periods = append(st.Periods, pc)
	}

	return st, nil
}

// CalculateCdrCost returns the total cost of a CDR under a tariff
func CalculateCdrCost(cdr *Cdr, tariff *Tariff) (decimal.Decimal, error) {
	st, err := NewPricer(cdr, tariff).Calculate()
	if err != nil {
		return decimal.Zero, err
	}
	return st.TotalCost, nil
}
