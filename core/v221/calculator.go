package v221

import (
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/timezone"
	"ocpi-cost/core/types"
	"ocpi-cost/internal/errors"
)

var (
	secondsPerHour = decimal.NewFromInt(3600)
	whPerKwh       = decimal.NewFromInt(1000)
	hundred        = decimal.NewFromInt(100)
)

// pricePrecision is the quantization applied to the final totals. Rounding
// happens only here, never mid-calculation.
const pricePrecision = 4

// accumulator is the per-calculation state: unrounded running totals plus
// what is needed for the end-of-session step settlement. Created fresh per
// call; nothing survives the calculation.
type accumulator struct {
	totalExclVat decimal.Decimal
	totalVat     decimal.Decimal

	energy      decimal.Decimal
	chargeTime  decimal.Decimal
	parkingTime decimal.Decimal

	// Per family, the component that priced the most recent occurrence;
	// its step size and VAT govern the settlement remainder.
	lastEnergy  *PriceComponent
	lastTime    *PriceComponent
	lastParking *PriceComponent

	flatFeeApplied bool
}

func (a *accumulator) add(cost decimal.Decimal, comp *PriceComponent) {
	a.totalExclVat = a.totalExclVat.Add(cost)
	if comp.Vat != nil {
		a.totalVat = a.totalVat.Add(cost.Mul(*comp.Vat).Div(hundred))
	}
}

// Result is the priced session: the final Price pair and the raw
// per-dimension session totals that produced it.
type Result struct {
	Price Price

	TotalEnergy      decimal.Decimal
	TotalTime        decimal.Decimal
	TotalParkingTime decimal.Decimal
}

// CalculateCdrCost prices a CDR under a tariff and returns the total as an
// excl-VAT / incl-VAT pair. A nil tariff falls back to the first tariff
// embedded in the CDR; with neither, the calculation cannot proceed.
func CalculateCdrCost(cdr *Cdr, tariff *Tariff) (Price, error) {
	res, err := Calculate(cdr, tariff)
	if err != nil {
		return Price{}, err
	}
	return res.Price, nil
}

// Calculate prices a CDR under a tariff, returning the full result
func Calculate(cdr *Cdr, tariff *Tariff) (*Result, error) {
	if tariff == nil {
		if len(cdr.Tariffs) == 0 {
			return nil, errors.MissingTariff()
		}
		tariff = &cdr.Tariffs[0]
	}

	acc := &accumulator{}
	country := cdr.country()
	periods := cdr.ChargingPeriods

	for i := range periods {
		period := &periods[i]
		start := period.StartDateTime

		end := cdr.EndDateTime
		if i < len(periods)-1 {
			end = periods[i+1].StartDateTime
		}
		durationHours := hoursBetween(start, end)
		sessionSeconds := int64(start.Sub(cdr.StartDateTime) / time.Second)

		comps := activeComponents(tariff, timezone.Localize(start, country), sessionSeconds)
		pricePeriod(acc, period, comps, durationHours)
	}

	settleStepSize(acc)

	return &Result{
		Price: Price{
			ExclVat: acc.totalExclVat.RoundBank(pricePrecision),
			InclVat: acc.totalExclVat.Add(acc.totalVat).RoundBank(pricePrecision),
		},
		TotalEnergy:      acc.energy,
		TotalTime:        acc.chargeTime,
		TotalParkingTime: acc.parkingTime,
	}, nil
}

// activeComponents resolves the components pricing one period. Elements
// are scanned in listed order; every element whose restrictions pass
// contributes its components for dimensions not yet covered. The layered
// union lets an element that only prices some dimensions (a grace-period
// FLAT, say) coexist with later elements pricing the rest, instead of
// forcing those dimensions to zero cost.
func activeComponents(tariff *Tariff, localStart time.Time, sessionSeconds int64) []*PriceComponent {
	var active []*PriceComponent
	covered := map[types.DimensionType]bool{}

	for i := range tariff.Elements {
		element := &tariff.Elements[i]
		if !element.isActive(localStart, sessionSeconds) {
			continue
		}
		for j := range element.PriceComponents {
			comp := &element.PriceComponents[j]
			if covered[comp.Type] {
				continue
			}
			active = append(active, comp)
			covered[comp.Type] = true
		}
	}

	return active
}

// pricePeriod charges one period's dimensions against its active
// components and updates the running totals. Dimensions with no owning
// component are billed as free.
func pricePeriod(acc *accumulator, period *ChargingPeriod, comps []*PriceComponent, durationHours decimal.Decimal) {
	for _, comp := range comps {
		switch comp.Type {
		case types.DimensionFlat:
			if !acc.flatFeeApplied {
				acc.add(comp.Price, comp)
				acc.flatFeeApplied = true
			}

		case types.DimensionEnergy:
			volume := dimensionVolume(period, types.DimensionEnergy)
			acc.add(volume.Mul(comp.Price), comp)
			acc.energy = acc.energy.Add(volume)
			acc.lastEnergy = comp

		case types.DimensionTime:
			volume := dimensionVolume(period, types.DimensionTime)
			if volume.IsZero() {
				// A period with neither a TIME nor a PARKING_TIME
				// dimension is charged on wall-clock duration; a
				// parking period gets no charging-time cost.
				if dimensionVolume(period, types.DimensionParkingTime).IsZero() {
					volume = durationHours
				} else {
					volume = decimal.Zero
				}
			}
			acc.add(volume.Mul(comp.Price), comp)
			acc.chargeTime = acc.chargeTime.Add(volume)
			acc.lastTime = comp

		case types.DimensionParkingTime:
			volume := dimensionVolume(period, types.DimensionParkingTime)
			acc.add(volume.Mul(comp.Price), comp)
			acc.parkingTime = acc.parkingTime.Add(volume)
			acc.lastParking = comp
		}
	}
}

// settleStepSize applies the step-size correction once, at the end of the
// session: the cumulative volume per family is rounded up to the next
// whole step and the remainder is charged at the last component's rate.
// When the session used both TIME and PARKING_TIME, only PARKING_TIME is
// corrected, so step remainders are not billed twice across the two
// time-like families.
func settleStepSize(acc *accumulator) {
	bothTimeFamilies := acc.chargeTime.IsPositive() && acc.parkingTime.IsPositive()

	settle(acc, acc.energy, acc.lastEnergy, whPerKwh)
	if !bothTimeFamilies {
		settle(acc, acc.chargeTime, acc.lastTime, secondsPerHour)
	}
	settle(acc, acc.parkingTime, acc.lastParking, secondsPerHour)
}

func settle(acc *accumulator, total decimal.Decimal, comp *PriceComponent, factor decimal.Decimal) {
	if comp == nil || comp.StepSize <= 0 {
		return
	}

	step := decimal.NewFromInt(comp.StepSize)
	steps := total.Mul(factor).Div(step).Ceil()
	rounded := steps.Mul(step).Div(factor)

	remainder := rounded.Sub(total)
	if remainder.IsPositive() {
		acc.add(remainder.Mul(comp.Price), comp)
	}
}

func dimensionVolume(period *ChargingPeriod, t types.DimensionType) decimal.Decimal {
	for _, d := range period.Dimensions {
		if d.Type == t {
			return d.Volume
		}
	}
	return decimal.Zero
}

func hoursBetween(start, end time.Time) decimal.Decimal {
	seconds := int64(end.Sub(start) / time.Second)
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}
