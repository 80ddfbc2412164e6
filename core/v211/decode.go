package v211

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/rounding"
	"ocpi-cost/core/types"
	"ocpi-cost/internal/errors"
)

// Wire-format decoding and validation. The engine itself assumes
// well-formed input; everything raw is rejected or defaulted here.

type roundingJSON struct {
	Granularity *string `json:"round_granularity"`
	Rule        *string `json:"round_rule"`
}

type componentJSON struct {
	Type                *string          `json:"type"`
	Price               *decimal.Decimal `json:"price"`
	StepSize            *int64           `json:"step_size"`
	PriceRound          *roundingJSON    `json:"price_round"`
	StepRound           *roundingJSON    `json:"step_round"`
	ExactPriceComponent *bool            `json:"exact_price_component"`
}

type restrictionsJSON struct {
	StartTime   *string          `json:"start_time"`
	EndTime     *string          `json:"end_time"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	MinKwh      *decimal.Decimal `json:"min_kwh"`
	MaxKwh      *decimal.Decimal `json:"max_kwh"`
	MinPower    *decimal.Decimal `json:"min_power"`
	MaxPower    *decimal.Decimal `json:"max_power"`
	MinDuration *int64           `json:"min_duration"`
	MaxDuration *int64           `json:"max_duration"`
	DayOfWeek   []string         `json:"day_of_week"`
}

type elementJSON struct {
	PriceComponents []componentJSON   `json:"price_components"`
	Restrictions    *restrictionsJSON `json:"restrictions"`
}

type tariffJSON struct {
	ID           *string       `json:"id"`
	Currency     *string       `json:"currency"`
	TariffAltURL *string       `json:"tariff_alt_url"`
	Elements     []elementJSON `json:"elements"`
}

type dimensionJSON struct {
	Type   *string          `json:"type"`
	Volume *decimal.Decimal `json:"volume"`
}

type periodJSON struct {
	StartDateTime *string         `json:"start_date_time"`
	Dimensions    []dimensionJSON `json:"dimensions"`
}

type cdrJSON struct {
	ID               *string          `json:"id"`
	MeterID          *string          `json:"meter_id"`
	Currency         *string          `json:"currency"`
	ChargingPeriods  []periodJSON     `json:"charging_periods"`
	TotalCost        *decimal.Decimal `json:"total_cost"`
	TotalEnergy      *decimal.Decimal `json:"total_energy"`
	TotalTime        *decimal.Decimal `json:"total_time"`
	TotalParkingTime *decimal.Decimal `json:"total_parking_time"`
}

// DecodeTariff parses and validates an OCPI 2.1.1 tariff document
func DecodeTariff(data []byte) (*Tariff, error) {
	var raw tariffJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parsing("tariff is not valid JSON", err)
	}

	if raw.ID == nil || *raw.ID == "" {
		return nil, errors.Input("tariff: missing id")
	}
	if raw.Currency == nil || *raw.Currency == "" {
		return nil, errors.Input("tariff: missing currency")
	}
	if len(raw.Elements) == 0 {
		return nil, errors.Input("tariff: missing elements")
	}

	elements := make([]TariffElement, 0, len(raw.Elements))
	for i, re := range raw.Elements {
		element, err := decodeElement(re)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "tariff: element %d", i)
		}
		elements = append(elements, element)
	}

	tariff := NewTariff(*raw.ID, *raw.Currency, elements)
	if raw.TariffAltURL != nil {
		tariff.TariffAltURL = *raw.TariffAltURL
	}
	return tariff, nil
}

func decodeElement(raw elementJSON) (TariffElement, error) {
	if len(raw.PriceComponents) == 0 {
		return TariffElement{}, errors.Input("missing price_components")
	}

	components := make([]PriceComponent, 0, len(raw.PriceComponents))
	for i, rc := range raw.PriceComponents {
		pc, err := decodeComponent(rc)
		if err != nil {
			return TariffElement{}, errors.Wrapf(errors.TypeInput, err, "price component %d", i)
		}
		components = append(components, pc)
	}

	element := TariffElement{PriceComponents: components}
	if raw.Restrictions != nil {
		restrictions, err := decodeRestrictions(*raw.Restrictions)
		if err != nil {
			return TariffElement{}, err
		}
		element.Restrictions = restrictions
	}
	return element, nil
}

func decodeComponent(raw componentJSON) (PriceComponent, error) {
	if raw.Type == nil {
		return PriceComponent{}, errors.Input("missing type")
	}
	dim := types.DimensionType(*raw.Type)
	if !dim.Valid() {
		return PriceComponent{}, errors.Inputf("unknown dimension type %q", *raw.Type)
	}
	if raw.Price == nil {
		return PriceComponent{}, errors.Input("missing price")
	}
	if raw.StepSize == nil {
		return PriceComponent{}, errors.Input("missing step_size")
	}
	if *raw.StepSize < 0 {
		return PriceComponent{}, errors.Inputf("negative step_size %d", *raw.StepSize)
	}

	pc := PriceComponent{
		Type:                dim,
		Price:               *raw.Price,
		StepSize:            *raw.StepSize,
		PriceRound:          DefaultPriceRound(),
		StepRound:           DefaultStepRound(),
		ExactPriceComponent: raw.ExactPriceComponent,
	}

	if raw.PriceRound != nil {
		policy, err := decodeRounding(*raw.PriceRound)
		if err != nil {
			return PriceComponent{}, errors.Wrap(errors.TypeInput, "price_round", err)
		}
		pc.PriceRound = policy
	}
	if raw.StepRound != nil {
		policy, err := decodeRounding(*raw.StepRound)
		if err != nil {
			return PriceComponent{}, errors.Wrap(errors.TypeInput, "step_round", err)
		}
		pc.StepRound = policy
	}

	return pc, nil
}

func decodeRounding(raw roundingJSON) (rounding.Policy, error) {
	if raw.Granularity == nil || raw.Rule == nil {
		return rounding.Policy{}, errors.Input("missing round_granularity or round_rule")
	}
	policy := rounding.Policy{
		Granularity: rounding.Granularity(*raw.Granularity),
		Rule:        rounding.Rule(*raw.Rule),
	}
	if _, err := policy.Granularity.Decimals(); err != nil {
		return rounding.Policy{}, err
	}
	if !policy.Rule.Valid() {
		return rounding.Policy{}, errors.Inputf("unknown rounding rule %q", *raw.Rule)
	}
	return policy, nil
}

func decodeRestrictions(raw restrictionsJSON) (*Restrictions, error) {
	r := &Restrictions{
		MinKwh:      raw.MinKwh,
		MaxKwh:      raw.MaxKwh,
		MinPower:    raw.MinPower,
		MaxPower:    raw.MaxPower,
		MinDuration: raw.MinDuration,
		MaxDuration: raw.MaxDuration,
	}

	var err error
	if r.StartTime, err = decodeClock(raw.StartTime); err != nil {
		return nil, err
	}
	if r.EndTime, err = decodeClock(raw.EndTime); err != nil {
		return nil, err
	}
	if r.StartDate, err = decodeDate(raw.StartDate); err != nil {
		return nil, err
	}
	if r.EndDate, err = decodeDate(raw.EndDate); err != nil {
		return nil, err
	}

	for _, d := range raw.DayOfWeek {
		day := types.DayOfWeek(d)
		if !day.Valid() {
			return nil, errors.Inputf("unknown day_of_week %q", d)
		}
		r.DayOfWeek = append(r.DayOfWeek, day)
	}

	return r, nil
}

func decodeClock(s *string) (*types.ClockMinutes, error) {
	if s == nil {
		return nil, nil
	}
	c, err := types.ParseClock(*s)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "restriction time", err)
	}
	return &c, nil
}

func decodeDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "restriction date", err)
	}
	return &d, nil
}

// DecodeCdr parses and validates an OCPI 2.1.1 CDR document and runs the
// step-size back-flagging pass.
func DecodeCdr(data []byte) (*Cdr, error) {
	var raw cdrJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parsing("cdr is not valid JSON", err)
	}

	if raw.ID == nil || *raw.ID == "" {
		return nil, errors.Input("cdr: missing id")
	}
	if raw.Currency == nil || *raw.Currency == "" {
		return nil, errors.Input("cdr: missing currency")
	}

	periods := make([]ChargingPeriod, 0, len(raw.ChargingPeriods))
	for i, rp := range raw.ChargingPeriods {
		period, err := decodePeriod(rp)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "cdr: charging period %d", i)
		}
		periods = append(periods, period)
	}

	cdr := NewCdr(*raw.ID, *raw.Currency, periods)
	if raw.MeterID != nil {
		cdr.MeterID = *raw.MeterID
	}
	cdr.TotalCost = raw.TotalCost
	cdr.TotalEnergy = raw.TotalEnergy
	cdr.TotalTime = raw.TotalTime
	cdr.TotalParkingTime = raw.TotalParkingTime
	return cdr, nil
}

func decodePeriod(raw periodJSON) (ChargingPeriod, error) {
	if raw.StartDateTime == nil {
		return ChargingPeriod{}, errors.Input("missing start_date_time")
	}
	start, err := types.ParseTimestamp(*raw.StartDateTime)
	if err != nil {
		return ChargingPeriod{}, errors.Wrap(errors.TypeInput, "start_date_time", err)
	}

	period := ChargingPeriod{StartDateTime: start}
	for i, rd := range raw.Dimensions {
		if rd.Type == nil {
			return ChargingPeriod{}, errors.Inputf("dimension %d: missing type", i)
		}
		dim := types.DimensionType(*rd.Type)
		if !dim.Valid() {
			return ChargingPeriod{}, errors.Inputf("dimension %d: unknown type %q", i, *rd.Type)
		}
		if rd.Volume == nil {
			return ChargingPeriod{}, errors.Inputf("dimension %d: missing volume", i)
		}
		period.Dimensions = append(period.Dimensions, CdrDimension{Type: dim, Volume: *rd.Volume})
	}
	return period, nil
}
