package v221

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/types"
	"ocpi-cost/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func i64(v int64) *int64 {
	return &v
}

func timeComponent(price string, stepSeconds int64, vat *decimal.Decimal) PriceComponent {
	return PriceComponent{Type: types.DimensionTime, Price: dec(price), StepSize: stepSeconds, Vat: vat}
}

func simpleTariff(elements ...TariffElement) *Tariff {
	return &Tariff{ID: "t", Currency: "EUR", Elements: elements}
}

// TestSimpleTimeTariff reproduces the OCPI CDR example: 2.00/hour with
// 10% VAT and 5-minute steps over a 1.973-hour session bills 2.0 hours,
// 4.00 excl. VAT and 4.40 incl. VAT.
func TestSimpleTimeTariff(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 300, decPtr("10.0"))},
	})
	cdr := &Cdr{
		ID:            "12345",
		StartDateTime: time.Date(2015, 6, 29, 21, 39, 9, 0, time.UTC),
		EndDateTime:   time.Date(2015, 6, 29, 23, 37, 32, 0, time.UTC),
		Currency:      "EUR",
		ChargingPeriods: []ChargingPeriod{
			{
				StartDateTime: time.Date(2015, 6, 29, 21, 39, 9, 0, time.UTC),
				Dimensions:    []CdrDimension{{Type: types.DimensionTime, Volume: dec("1.973")}},
			},
		},
		TotalEnergy: dec("15.342"),
		TotalTime:   dec("1.973"),
	}

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(dec("4")) {
		t.Errorf("excl_vat = %s, want 4.00", price.ExclVat)
	}
	if !price.InclVat.Equal(dec("4.4")) {
		t.Errorf("incl_vat = %s, want 4.40", price.InclVat)
	}
}

// TestNoVatMeansEqualTotals tests that a component without VAT leaves the
// incl-VAT total equal to the excl-VAT total
func TestNoVatMeansEqualTotals(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 1, nil)},
	})
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("1.5")}}},
	}, 90*time.Minute)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(price.InclVat) {
		t.Errorf("incl_vat %s != excl_vat %s without VAT", price.InclVat, price.ExclVat)
	}
}

func ts(hour, min int) time.Time {
	return time.Date(2024, 3, 4, hour, min, 0, 0, time.UTC)
}

// sessionCdr builds a minimal CDR starting at the first period
func sessionCdr(t *testing.T, id string, periods []ChargingPeriod, length time.Duration) *Cdr {
	t.Helper()
	if len(periods) == 0 {
		t.Fatal("sessionCdr needs periods")
	}
	start := periods[0].StartDateTime
	return &Cdr{
		ID:              id,
		StartDateTime:   start,
		EndDateTime:     start.Add(length),
		Currency:        "EUR",
		ChargingPeriods: periods,
	}
}

// TestLayeredMatching proves the layered element union: a grace-period
// element that only carries a FLAT fee does not make charging time free;
// the TIME component comes from the later element. It also pins the
// exclusive-max boundary: at exactly 1800s the grace element no longer
// applies.
func TestLayeredMatching(t *testing.T) {
	grace := TariffElement{
		PriceComponents: []PriceComponent{{Type: types.DimensionFlat, Price: dec("0.50"), StepSize: 1}},
		Restrictions:    &Restrictions{MaxDuration: i64(1800)},
	}
	paid := TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 1, nil)},
		Restrictions:    &Restrictions{MinDuration: i64(1800)},
	}
	tariff := simpleTariff(grace, paid)

	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.5")}}},
		{StartDateTime: ts(12, 30), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.5")}}},
	}, time.Hour)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	// First half hour: flat 0.50, time unpriced (no TIME component
	// active). Second half hour, starting at exactly 1800s: 0.5h at
	// 2.00 from the paid element.
	if !price.ExclVat.Equal(dec("1.5")) {
		t.Errorf("excl_vat = %s, want 1.50", price.ExclVat)
	}
}

// TestFlatFeeChargedOnce tests flat-fee idempotence over many periods
func TestFlatFeeChargedOnce(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{{Type: types.DimensionFlat, Price: dec("2.50"), StepSize: 1}},
	})

	periods := make([]ChargingPeriod, 5)
	for i := range periods {
		periods[i] = ChargingPeriod{
			StartDateTime: ts(12, i*10),
			Dimensions:    []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.1")}},
		}
	}
	cdr := sessionCdr(t, "1", periods, 50*time.Minute)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(dec("2.5")) {
		t.Errorf("excl_vat = %s, want flat 2.50 charged once", price.ExclVat)
	}
}

// TestTimeFallbackToWallClock tests that a period without time dimensions
// bills the TIME component on wall-clock duration
func TestTimeFallbackToWallClock(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 1, nil)},
	})
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0)},
	}, 90*time.Minute)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(dec("3")) {
		t.Errorf("excl_vat = %s, want 1.5h at 2.00 = 3.00", price.ExclVat)
	}
}

// TestParkingSkipsTimeStepCorrection tests the combined rule: when both
// TIME and PARKING_TIME are used, only parking receives the step-size
// settlement.
func TestParkingSkipsTimeStepCorrection(t *testing.T) {
	element := TariffElement{
		PriceComponents: []PriceComponent{
			timeComponent("2.00", 300, nil),
			{Type: types.DimensionParkingTime, Price: dec("1.00"), StepSize: 1800},
		},
	}
	tariff := simpleTariff(element)

	cdr := sessionCdr(t, "1", []ChargingPeriod{
		// 0.9h of charging: alone this would step-round to 0.91666h
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.9")}}},
		// 0.4h of parking: steps of 1800s round it up to 0.5h
		{StartDateTime: ts(12, 54), Dimensions: []CdrDimension{{Type: types.DimensionParkingTime, Volume: dec("0.4")}}},
	}, 78*time.Minute)

	result, err := Calculate(cdr, tariff)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	// 0.9*2.00 + 0.4*1.00 + parking remainder 0.1*1.00; no TIME
	// remainder despite the 300s step.
	if !result.Price.ExclVat.Equal(dec("2.3")) {
		t.Errorf("excl_vat = %s, want 2.30", result.Price.ExclVat)
	}
	if !result.TotalParkingTime.Equal(dec("0.4")) {
		t.Errorf("parking total = %s, want raw 0.4", result.TotalParkingTime)
	}
}

// TestTimeStepCorrectionWithoutParking tests that TIME does get the
// settlement when parking never occurs
func TestTimeStepCorrectionWithoutParking(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 300, nil)},
	})
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.9")}}},
	}, 54*time.Minute)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	// 0.9h rounds up to 11 steps of 300s = 0.91666...h
	if !price.ExclVat.Equal(dec("1.8333")) {
		t.Errorf("excl_vat = %s, want 1.8333", price.ExclVat)
	}
}

// TestEnergyStepSettlement tests the energy step remainder billed once at
// the end across periods
func TestEnergyStepSettlement(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{{Type: types.DimensionEnergy, Price: dec("0.25"), StepSize: 500}},
	})
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionEnergy, Volume: dec("4.3")}}},
		{StartDateTime: ts(12, 30), Dimensions: []CdrDimension{{Type: types.DimensionEnergy, Volume: dec("1.1")}}},
	}, time.Hour)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	// 5.4 kWh rounds up to 5.5 kWh in 500 Wh steps: 5.5 * 0.25
	if !price.ExclVat.Equal(dec("1.375")) {
		t.Errorf("excl_vat = %s, want 1.375", price.ExclVat)
	}
}

// TestStepSettlementExactMultiple tests that an exact step multiple adds
// no remainder
func TestStepSettlementExactMultiple(t *testing.T) {
	tariff := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 300, nil)},
	})
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("2")}}},
	}, 2*time.Hour)

	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(dec("4")) {
		t.Errorf("excl_vat = %s, want exactly 4.00", price.ExclVat)
	}
}

// TestTariffFallback tests the embedded-tariff fallback and the
// missing-tariff error
func TestTariffFallback(t *testing.T) {
	embedded := simpleTariff(TariffElement{
		PriceComponents: []PriceComponent{timeComponent("1.00", 1, nil)},
	})

	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("1")}}},
	}, time.Hour)
	cdr.Tariffs = []Tariff{*embedded}

	price, err := CalculateCdrCost(cdr, nil)
	if err != nil {
		t.Fatalf("CalculateCdrCost with embedded tariff: %v", err)
	}
	if !price.ExclVat.Equal(dec("1")) {
		t.Errorf("excl_vat = %s, want 1.00 from embedded tariff", price.ExclVat)
	}

	cdr.Tariffs = nil
	_, err = CalculateCdrCost(cdr, nil)
	if err == nil {
		t.Fatal("expected error with no tariff at all")
	}
	if !errors.IsType(err, errors.TypeTariff) {
		t.Errorf("expected TARIFF_ERROR, got %v", err)
	}
}

// TestLocationTimezoneShiftsRestrictions tests that calendar restrictions
// evaluate in the charge point's local time
func TestLocationTimezoneShiftsRestrictions(t *testing.T) {
	// Element only applies on Tuesday. The period starts Monday
	// 23:30 UTC, which is already Tuesday in Helsinki.
	tuesdayOnly := TariffElement{
		PriceComponents: []PriceComponent{timeComponent("2.00", 1, nil)},
		Restrictions:    &Restrictions{DayOfWeek: []types.DayOfWeek{types.Tuesday}},
	}
	tariff := simpleTariff(tuesdayOnly)

	monday2330 := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)
	periods := []ChargingPeriod{
		{StartDateTime: monday2330, Dimensions: []CdrDimension{{Type: types.DimensionTime, Volume: dec("0.5")}}},
	}

	cdr := sessionCdr(t, "1", periods, 30*time.Minute)
	cdr.Location = &CdrLocation{ID: "loc", Country: "FIN"}
	price, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.Equal(dec("1")) {
		t.Errorf("excl_vat = %s, want 1.00 (Tuesday in Helsinki)", price.ExclVat)
	}

	// Without a resolvable location the timestamp stays UTC Monday and
	// the element never matches.
	cdr = sessionCdr(t, "2", periods, 30*time.Minute)
	price, err = CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	if !price.ExclVat.IsZero() {
		t.Errorf("excl_vat = %s, want 0 (Monday in UTC)", price.ExclVat)
	}
}

// TestDeterminism proves repeated calculations return identical results
func TestDeterminism(t *testing.T) {
	tariff := simpleTariff(
		TariffElement{
			PriceComponents: []PriceComponent{
				{Type: types.DimensionFlat, Price: dec("0.50"), StepSize: 1},
				timeComponent("2.00", 300, decPtr("21")),
				{Type: types.DimensionEnergy, Price: dec("0.25"), StepSize: 500, Vat: decPtr("9")},
			},
		},
	)
	cdr := sessionCdr(t, "1", []ChargingPeriod{
		{StartDateTime: ts(12, 0), Dimensions: []CdrDimension{
			{Type: types.DimensionTime, Volume: dec("1.973")},
			{Type: types.DimensionEnergy, Volume: dec("15.342")},
		}},
	}, 7103*time.Second)

	first, err := CalculateCdrCost(cdr, tariff)
	if err != nil {
		t.Fatalf("CalculateCdrCost: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := CalculateCdrCost(cdr, tariff)
		if err != nil {
			t.Fatalf("CalculateCdrCost: %v", err)
		}
		if !again.ExclVat.Equal(first.ExclVat) || !again.InclVat.Equal(first.InclVat) {
			t.Fatalf("run %d: got %+v, want %+v", i, again, first)
		}
	}
}
