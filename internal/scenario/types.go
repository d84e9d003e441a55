package scenario

import (
	"fmt"
	"strings"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
)

const (
	MaxBudgetMonthly   = 10_000_000.0
	MinTimeframeMonths = 1
	MaxTimeframeMonths = 36
)

// ScenarioInput is the shared set of user-adjustable business parameters.
// Values handed out by the store are copies; mutating one has no effect on
// the store or on other readers.
type ScenarioInput struct {
	BudgetMonthly    float64                 `json:"budget_monthly"`
	Industry         string                  `json:"industry"`
	CompanySizeTier  catalog.CompanySizeTier `json:"company_size_tier"`
	MarketComplexity float64                 `json:"market_complexity"`
	ChannelsSelected []string                `json:"channels_selected"`
	TimeframeMonths  int                     `json:"timeframe_months"`
	DesiredOutcomes  []string                `json:"desired_outcomes"`
}

func (s ScenarioInput) Clone() ScenarioInput {
	cp := s
	cp.ChannelsSelected = append([]string{}, s.ChannelsSelected...)
	cp.DesiredOutcomes = append([]string{}, s.DesiredOutcomes...)
	return cp
}

// Equal reports whether two scenarios hold the same values.
func (s ScenarioInput) Equal(o ScenarioInput) bool {
	if s.BudgetMonthly != o.BudgetMonthly || s.Industry != o.Industry ||
		s.CompanySizeTier != o.CompanySizeTier || s.MarketComplexity != o.MarketComplexity ||
		s.TimeframeMonths != o.TimeframeMonths {
		return false
	}
	return equalStrings(s.ChannelsSelected, o.ChannelsSelected) && equalStrings(s.DesiredOutcomes, o.DesiredOutcomes)
}

// FromDefaults builds the initial scenario from catalog defaults.
func FromDefaults(d catalog.ScenarioDefaults) ScenarioInput {
	return ScenarioInput{
		BudgetMonthly:    d.BudgetMonthly,
		Industry:         d.Industry,
		CompanySizeTier:  d.CompanySizeTier,
		MarketComplexity: d.MarketComplexity,
		ChannelsSelected: normalizeSet(d.Channels),
		TimeframeMonths:  d.TimeframeMonths,
		DesiredOutcomes:  normalizeSet(d.Outcomes),
	}
}

// Partial is an update request. Nil fields are left unchanged. A non-nil
// empty ChannelsSelected is a request to clear the set and is rejected.
// The slices are encoded even when empty so a clear survives the wire.
type Partial struct {
	BudgetMonthly    *float64                 `json:"budget_monthly,omitempty"`
	Industry         *string                  `json:"industry,omitempty"`
	CompanySizeTier  *catalog.CompanySizeTier `json:"company_size_tier,omitempty"`
	MarketComplexity *float64                 `json:"market_complexity,omitempty"`
	ChannelsSelected []string                 `json:"channels_selected"`
	TimeframeMonths  *int                     `json:"timeframe_months,omitempty"`
	DesiredOutcomes  []string                 `json:"desired_outcomes"`
}

// Full returns a Partial that sets every field of s.
func Full(s ScenarioInput) Partial {
	budget := s.BudgetMonthly
	industry := s.Industry
	tier := s.CompanySizeTier
	complexity := s.MarketComplexity
	timeframe := s.TimeframeMonths
	channels := append([]string{}, s.ChannelsSelected...)
	outcomes := append([]string{}, s.DesiredOutcomes...)
	return Partial{
		BudgetMonthly:    &budget,
		Industry:         &industry,
		CompanySizeTier:  &tier,
		MarketComplexity: &complexity,
		ChannelsSelected: channels,
		TimeframeMonths:  &timeframe,
		DesiredOutcomes:  outcomes,
	}
}

type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
}

// ValidationError lists every field of an update that violated its bounds.
// The store is unchanged when it is returned.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s (got %v)", f.Field, f.Constraint, f.Value))
	}
	return "invalid scenario: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
