package rounding

import (
	"testing"

	"github.com/shopspring/decimal"

	"ocpi-cost/internal/errors"
)

// TestApply tests rounding across granularities and rules
func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		policy   Policy
		expected string
	}{
		{
			name:     "unit round up",
			value:    "23.676",
			policy:   Policy{Granularity: Unit, Rule: RoundUp},
			expected: "24",
		},
		{
			name:     "unit round up on exact value stays",
			value:    "24",
			policy:   Policy{Granularity: Unit, Rule: RoundUp},
			expected: "24",
		},
		{
			name:     "unit round down",
			value:    "23.676",
			policy:   Policy{Granularity: Unit, Rule: RoundDown},
			expected: "23",
		},
		{
			name:     "thousandth round near",
			value:    "1.23456",
			policy:   Policy{Granularity: Thousandth, Rule: RoundNear},
			expected: "1.235",
		},
		{
			name:     "thousandth round near keeps short values",
			value:    "4",
			policy:   Policy{Granularity: Thousandth, Rule: RoundNear},
			expected: "4",
		},
		{
			name:     "hundredth round up",
			value:    "0.051",
			policy:   Policy{Granularity: Hundredth, Rule: RoundUp},
			expected: "0.06",
		},
		{
			name:     "tenth round down",
			value:    "0.19",
			policy:   Policy{Granularity: Tenth, Rule: RoundDown},
			expected: "0.1",
		},
		{
			name:     "negative value round down floors",
			value:    "-1.2",
			policy:   Policy{Granularity: Unit, Rule: RoundDown},
			expected: "-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(decimal.RequireFromString(tt.value), tt.policy)
			if err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Apply(%s) = %s, want %s", tt.value, got, tt.expected)
			}
		})
	}
}

// TestApplyUnknownPolicy proves unknown policies abort rather than guessing
func TestApplyUnknownPolicy(t *testing.T) {
	v := decimal.NewFromInt(1)

	_, err := Apply(v, Policy{Granularity: "FORTNIGHT", Rule: RoundUp})
	if err == nil {
		t.Fatal("expected error for unknown granularity")
	}
	if !errors.IsType(err, errors.TypeRounding) {
		t.Errorf("expected ROUNDING_ERROR, got %v", err)
	}

	_, err = Apply(v, Policy{Granularity: Unit, Rule: "ROUND_MAYBE"})
	if err == nil {
		t.Fatal("expected error for unknown rule")
	}
	if !errors.IsType(err, errors.TypeRounding) {
		t.Errorf("expected ROUNDING_ERROR, got %v", err)
	}
}
