package scenario

import (
	"math"
	"sort"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
)

const (
	FieldBudgetMonthly    = "budget_monthly"
	FieldIndustry         = "industry"
	FieldCompanySizeTier  = "company_size_tier"
	FieldMarketComplexity = "market_complexity"
	FieldChannelsSelected = "channels_selected"
	FieldTimeframeMonths  = "timeframe_months"
	FieldDesiredOutcomes  = "desired_outcomes"
)

// apply validates every provided field of p and, when all pass, returns
// base with those fields replaced. Out-of-range values are reported, never
// clamped.
func (p Partial) apply(cat *catalog.Catalog, base ScenarioInput) (ScenarioInput, error) {
	next := base.Clone()
	var errs []FieldError

	if p.BudgetMonthly != nil {
		v := *p.BudgetMonthly
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			errs = append(errs, FieldError{Field: FieldBudgetMonthly, Constraint: "must be a finite number", Value: v})
		case v < 0:
			errs = append(errs, FieldError{Field: FieldBudgetMonthly, Constraint: "must be >= 0", Value: v})
		case v > MaxBudgetMonthly:
			errs = append(errs, FieldError{Field: FieldBudgetMonthly, Constraint: "must be <= 10000000", Value: v})
		default:
			next.BudgetMonthly = v
		}
	}
	if p.Industry != nil {
		if !cat.HasIndustry(*p.Industry) {
			errs = append(errs, FieldError{Field: FieldIndustry, Constraint: "must be a catalog industry", Value: *p.Industry})
		} else {
			next.Industry = *p.Industry
		}
	}
	if p.CompanySizeTier != nil {
		if !p.CompanySizeTier.Valid() {
			errs = append(errs, FieldError{Field: FieldCompanySizeTier, Constraint: "must be one of startup, smb, midmarket, enterprise", Value: string(*p.CompanySizeTier)})
		} else {
			next.CompanySizeTier = *p.CompanySizeTier
		}
	}
	if p.MarketComplexity != nil {
		v := *p.MarketComplexity
		if math.IsNaN(v) || v < 0 || v > 1 {
			errs = append(errs, FieldError{Field: FieldMarketComplexity, Constraint: "must be in [0,1]", Value: v})
		} else {
			next.MarketComplexity = v
		}
	}
	if p.ChannelsSelected != nil {
		set := normalizeSet(p.ChannelsSelected)
		if len(set) == 0 {
			errs = append(errs, FieldError{Field: FieldChannelsSelected, Constraint: "must select at least one channel", Value: p.ChannelsSelected})
		} else if bad := unknownKeys(set, func(k string) bool { _, ok := cat.Channel(k); return ok }); len(bad) > 0 {
			errs = append(errs, FieldError{Field: FieldChannelsSelected, Constraint: "must be catalog channels", Value: bad})
		} else {
			next.ChannelsSelected = set
		}
	}
	if p.TimeframeMonths != nil {
		v := *p.TimeframeMonths
		if v < MinTimeframeMonths || v > MaxTimeframeMonths {
			errs = append(errs, FieldError{Field: FieldTimeframeMonths, Constraint: "must be in [1,36]", Value: v})
		} else {
			next.TimeframeMonths = v
		}
	}
	if p.DesiredOutcomes != nil {
		set := normalizeSet(p.DesiredOutcomes)
		if bad := unknownKeys(set, func(k string) bool { _, ok := cat.Outcome(k); return ok }); len(bad) > 0 {
			errs = append(errs, FieldError{Field: FieldDesiredOutcomes, Constraint: "must be catalog outcomes", Value: bad})
		} else {
			next.DesiredOutcomes = set
		}
	}

	if len(errs) > 0 {
		return ScenarioInput{}, &ValidationError{Fields: errs}
	}
	return next, nil
}

// ValidateScenario checks a complete scenario, for callers that build one
// outside a store.
func ValidateScenario(cat *catalog.Catalog, s ScenarioInput) error {
	_, err := Full(s).apply(cat, ScenarioInput{})
	return err
}

// Normalize returns s with its sets sorted and de-duplicated.
func Normalize(s ScenarioInput) ScenarioInput {
	cp := s.Clone()
	cp.ChannelsSelected = normalizeSet(s.ChannelsSelected)
	cp.DesiredOutcomes = normalizeSet(s.DesiredOutcomes)
	return cp
}

func normalizeSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func unknownKeys(keys []string, known func(string) bool) []string {
	var bad []string
	for _, k := range keys {
		if !known(k) {
			bad = append(bad, k)
		}
	}
	return bad
}
