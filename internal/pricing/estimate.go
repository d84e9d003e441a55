package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

type PricingEstimate struct {
	TierName        string                  `json:"tier_name"`
	CompanySizeTier catalog.CompanySizeTier `json:"company_size_tier"`
	Complexity      float64                 `json:"complexity"`
	Low             float64                 `json:"low_bound"`
	High            float64                 `json:"high_bound"`
	Multiplier      float64                 `json:"multiplier"`
	Outcomes        []string                `json:"outcomes"`
}

// Estimate looks up the ladder for tier and interpolates between the two
// breakpoints around complexity. A complexity exactly on a breakpoint
// belongs to the tier below it; both tiers give the same bounds there.
// Desired outcomes scale both bounds by one plus their summed uplift.
func Estimate(cat *catalog.Catalog, tier catalog.CompanySizeTier, complexity float64, outcomes []string) (PricingEstimate, error) {
	ladder, ok := cat.Pricing[tier]
	if !tier.Valid() || !ok || len(ladder) == 0 {
		return PricingEstimate{}, fmt.Errorf("unknown company size tier %q", tier)
	}
	if math.IsNaN(complexity) || complexity < 0 || complexity > 1 {
		return PricingEstimate{}, fmt.Errorf("complexity must be in [0,1], got %v", complexity)
	}
	keys, multiplier, err := upliftFor(cat, outcomes)
	if err != nil {
		return PricingEstimate{}, err
	}

	i := segmentFor(ladder, complexity)
	base := ladder[i]
	low, high := base.Low, base.High
	if i+1 < len(ladder) {
		next := ladder[i+1]
		t := (complexity - base.Complexity) / (next.Complexity - base.Complexity)
		t = math.Max(0, math.Min(1, t))
		low = lerp(base.Low, next.Low, t)
		high = lerp(base.High, next.High, t)
	}

	low = math.Max(0, low*multiplier)
	high = math.Max(0, high*multiplier)
	if low > high {
		low, high = high, low
	}
	return PricingEstimate{
		TierName:        base.Name,
		CompanySizeTier: tier,
		Complexity:      complexity,
		Low:             roundCents(low),
		High:            roundCents(high),
		Multiplier:      multiplier,
		Outcomes:        keys,
	}, nil
}

// EstimateScenario prices the scenario's size tier, complexity and outcomes.
func EstimateScenario(cat *catalog.Catalog, s scenario.ScenarioInput) (PricingEstimate, error) {
	return Estimate(cat, s.CompanySizeTier, s.MarketComplexity, s.DesiredOutcomes)
}

// segmentFor returns the index of the last breakpoint strictly below c, or
// zero when c sits on the first breakpoint.
func segmentFor(ladder []catalog.PricingBreakpoint, c float64) int {
	i := sort.Search(len(ladder), func(j int) bool { return ladder[j].Complexity >= c })
	if i == 0 {
		return 0
	}
	return i - 1
}

func upliftFor(cat *catalog.Catalog, outcomes []string) ([]string, float64, error) {
	seen := map[string]bool{}
	keys := make([]string, 0, len(outcomes))
	for _, k := range outcomes {
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	multiplier := 1.0
	for _, k := range keys {
		o, ok := cat.Outcome(k)
		if !ok {
			return nil, 0, fmt.Errorf("unknown outcome %q", k)
		}
		multiplier += o.Uplift
	}
	return keys, multiplier, nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
