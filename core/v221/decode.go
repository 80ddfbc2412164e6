package v221

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ocpi-cost/core/types"
	"ocpi-cost/internal/errors"
)

// Wire-format decoding and validation. The engine assumes well-formed
// input; everything raw is rejected or defaulted here.

type priceJSON struct {
	ExclVat *decimal.Decimal `json:"excl_vat"`
	InclVat *decimal.Decimal `json:"incl_vat"`
}

type componentJSON struct {
	Type     *string          `json:"type"`
	Price    *decimal.Decimal `json:"price"`
	Vat      *decimal.Decimal `json:"vat"`
	StepSize *int64           `json:"step_size"`
}

type restrictionsJSON struct {
	StartTime   *string          `json:"start_time"`
	EndTime     *string          `json:"end_time"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	MinKwh      *decimal.Decimal `json:"min_kwh"`
	MaxKwh      *decimal.Decimal `json:"max_kwh"`
	MinCurrent  *decimal.Decimal `json:"min_current"`
	MaxCurrent  *decimal.Decimal `json:"max_current"`
	MinPower    *decimal.Decimal `json:"min_power"`
	MaxPower    *decimal.Decimal `json:"max_power"`
	MinDuration *int64           `json:"min_duration"`
	MaxDuration *int64           `json:"max_duration"`
	DayOfWeek   []string         `json:"day_of_week"`
	Reservation *string          `json:"reservation"`
}

type elementJSON struct {
	PriceComponents []componentJSON   `json:"price_components"`
	Restrictions    *restrictionsJSON `json:"restrictions"`
}

type tariffJSON struct {
	ID            *string       `json:"id"`
	Currency      *string       `json:"currency"`
	Elements      []elementJSON `json:"elements"`
	MinPrice      *priceJSON    `json:"min_price"`
	MaxPrice      *priceJSON    `json:"max_price"`
	StartDateTime *string       `json:"start_date_time"`
	EndDateTime   *string       `json:"end_date_time"`
	LastUpdated   *string       `json:"last_updated"`
}

type dimensionJSON struct {
	Type   *string          `json:"type"`
	Volume *decimal.Decimal `json:"volume"`
}

type periodJSON struct {
	StartDateTime *string         `json:"start_date_time"`
	Dimensions    []dimensionJSON `json:"dimensions"`
	TariffID      *string         `json:"tariff_id"`
}

type locationJSON struct {
	ID      *string `json:"id"`
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	Country *string `json:"country"`
}

type cdrJSON struct {
	ID               *string          `json:"id"`
	StartDateTime    *string          `json:"start_date_time"`
	EndDateTime      *string          `json:"end_date_time"`
	Currency         *string          `json:"currency"`
	CdrLocation      *locationJSON    `json:"cdr_location"`
	Tariffs          []tariffJSON     `json:"tariffs"`
	ChargingPeriods  []periodJSON     `json:"charging_periods"`
	TotalCost        *priceJSON       `json:"total_cost"`
	TotalEnergy      *decimal.Decimal `json:"total_energy"`
	TotalTime        *decimal.Decimal `json:"total_time"`
	TotalParkingTime *decimal.Decimal `json:"total_parking_time"`
	LastUpdated      *string          `json:"last_updated"`
}

// DecodeTariff parses and validates an OCPI 2.2.1 tariff document
func DecodeTariff(data []byte) (*Tariff, error) {
	var raw tariffJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parsing("tariff is not valid JSON", err)
	}
	return decodeTariff(raw)
}

func decodeTariff(raw tariffJSON) (*Tariff, error) {
	if raw.ID == nil || *raw.ID == "" {
		return nil, errors.Input("tariff: missing id")
	}
	if raw.Currency == nil || *raw.Currency == "" {
		return nil, errors.Input("tariff: missing currency")
	}
	if len(raw.Elements) == 0 {
		return nil, errors.Input("tariff: missing elements")
	}

	t := &Tariff{ID: *raw.ID, Currency: *raw.Currency}

	for i, re := range raw.Elements {
		element, err := decodeElement(re)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "tariff: element %d", i)
		}
		t.Elements = append(t.Elements, element)
	}

	t.MinPrice = decodePrice(raw.MinPrice)
	t.MaxPrice = decodePrice(raw.MaxPrice)

	var err error
	if t.StartDateTime, err = decodeOptionalTimestamp(raw.StartDateTime); err != nil {
		return nil, err
	}
	if t.EndDateTime, err = decodeOptionalTimestamp(raw.EndDateTime); err != nil {
		return nil, err
	}
	if raw.LastUpdated != nil {
		if t.LastUpdated, err = types.ParseTimestamp(*raw.LastUpdated); err != nil {
			return nil, errors.Wrap(errors.TypeInput, "tariff: last_updated", err)
		}
	}

	return t, nil
}

func decodeElement(raw elementJSON) (TariffElement, error) {
	if len(raw.PriceComponents) == 0 {
		return TariffElement{}, errors.Input("missing price_components")
	}

	var element TariffElement
	for i, rc := range raw.PriceComponents {
		pc, err := decodeComponent(rc)
		if err != nil {
			return TariffElement{}, errors.Wrapf(errors.TypeInput, err, "price component %d", i)
		}
		element.PriceComponents = append(element.PriceComponents, pc)
	}

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
	// SESSION_TIME is a 2.1.1 tariff dimension; 2.2.1 components price
	// TIME and PARKING_TIME separately.
	if dim == types.DimensionSessionTime {
		return PriceComponent{}, errors.Inputf("dimension type %q not allowed in this tariff version", *raw.Type)
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

	return PriceComponent{
		Type:     dim,
		Price:    *raw.Price,
		Vat:      raw.Vat,
		StepSize: *raw.StepSize,
	}, nil
}

func decodeRestrictions(raw restrictionsJSON) (*Restrictions, error) {
	r := &Restrictions{
		StartDate:   raw.StartDate,
		EndDate:     raw.EndDate,
		MinKwh:      raw.MinKwh,
		MaxKwh:      raw.MaxKwh,
		MinCurrent:  raw.MinCurrent,
		MaxCurrent:  raw.MaxCurrent,
		MinPower:    raw.MinPower,
		MaxPower:    raw.MaxPower,
		MinDuration: raw.MinDuration,
		MaxDuration: raw.MaxDuration,
		Reservation: raw.Reservation,
	}

	var err error
	if r.StartTime, err = decodeClock(raw.StartTime); err != nil {
		return nil, err
	}
	if r.EndTime, err = decodeClock(raw.EndTime); err != nil {
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

func decodePrice(raw *priceJSON) *Price {
	if raw == nil || raw.ExclVat == nil {
		return nil
	}
	p := &Price{ExclVat: *raw.ExclVat}
	if raw.InclVat != nil {
		p.InclVat = *raw.InclVat
	}
	return p
}

func decodeOptionalTimestamp(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := types.ParseTimestamp(*s)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "timestamp", err)
	}
	return &t, nil
}

// DecodeCdr parses and validates an OCPI 2.2.1 CDR document. A missing id
// is filled with a fresh UUID.
func DecodeCdr(data []byte) (*Cdr, error) {
	var raw cdrJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Parsing("cdr is not valid JSON", err)
	}

	if raw.StartDateTime == nil {
		return nil, errors.Input("cdr: missing start_date_time")
	}
	if raw.EndDateTime == nil {
		return nil, errors.Input("cdr: missing end_date_time")
	}
	if raw.Currency == nil || *raw.Currency == "" {
		return nil, errors.Input("cdr: missing currency")
	}
	if raw.TotalEnergy == nil {
		return nil, errors.Input("cdr: missing total_energy")
	}
	if raw.TotalTime == nil {
		return nil, errors.Input("cdr: missing total_time")
	}

	cdr := &Cdr{
		Currency:         *raw.Currency,
		TotalEnergy:      *raw.TotalEnergy,
		TotalTime:        *raw.TotalTime,
		TotalParkingTime: raw.TotalParkingTime,
	}

	if raw.ID != nil && *raw.ID != "" {
		cdr.ID = *raw.ID
	} else {
		cdr.ID = uuid.NewString()
	}

	var err error
	if cdr.StartDateTime, err = types.ParseTimestamp(*raw.StartDateTime); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "cdr: start_date_time", err)
	}
	if cdr.EndDateTime, err = types.ParseTimestamp(*raw.EndDateTime); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "cdr: end_date_time", err)
	}
	if raw.LastUpdated != nil {
		if cdr.LastUpdated, err = types.ParseTimestamp(*raw.LastUpdated); err != nil {
			return nil, errors.Wrap(errors.TypeInput, "cdr: last_updated", err)
		}
	}

	if raw.CdrLocation != nil {
		cdr.Location = decodeLocation(*raw.CdrLocation)
	}

	for i, rt := range raw.Tariffs {
		tariff, err := decodeTariff(rt)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "cdr: tariff %d", i)
		}
		cdr.Tariffs = append(cdr.Tariffs, *tariff)
	}

	for i, rp := range raw.ChargingPeriods {
		period, err := decodePeriod(rp)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "cdr: charging period %d", i)
		}
		cdr.ChargingPeriods = append(cdr.ChargingPeriods, period)
	}

	if raw.TotalCost != nil {
		cdr.TotalCost = decodePrice(raw.TotalCost)
	}

	return cdr, nil
}

func decodeLocation(raw locationJSON) *CdrLocation {
	loc := &CdrLocation{}
	if raw.ID != nil {
		loc.ID = *raw.ID
	}
	if raw.Name != nil {
		loc.Name = *raw.Name
	}
	if raw.Address != nil {
		loc.Address = *raw.Address
	}
	if raw.City != nil {
		loc.City = *raw.City
	}
	if raw.Country != nil {
		loc.Country = *raw.Country
	}
	return loc
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
	if raw.TariffID != nil {
		period.TariffID = *raw.TariffID
	}
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
