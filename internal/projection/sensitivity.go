package projection

import (
	"fmt"
	"math"
	"sort"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

// Driver reports how far net return at the horizon swings when one input is
// moved between a low and a high setting with everything else held.
type Driver struct {
	Input     string  `json:"input"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	NetDelta  float64 `json:"net_delta"`
	Direction string  `json:"direction"`
}

const (
	budgetSwing     = 0.20
	complexitySwing = 0.20
	timeframeSwing  = 6
)

// Sensitivity ranks the inputs by their effect on net return, largest first.
func Sensitivity(s scenario.ScenarioInput, cat *catalog.Catalog) []Driver {
	type candidate struct {
		name  string
		label string
		low   scenario.ScenarioInput
		high  scenario.ScenarioInput
		lowV  float64
		highV float64
	}

	budgetLow := s.Clone()
	budgetLow.BudgetMonthly = s.BudgetMonthly * (1 - budgetSwing)
	budgetHigh := s.Clone()
	budgetHigh.BudgetMonthly = math.Min(s.BudgetMonthly*(1+budgetSwing), scenario.MaxBudgetMonthly)

	complexityLow := s.Clone()
	complexityLow.MarketComplexity = math.Max(s.MarketComplexity-complexitySwing, 0)
	complexityHigh := s.Clone()
	complexityHigh.MarketComplexity = math.Min(s.MarketComplexity+complexitySwing, 1)

	timeframeLow := s.Clone()
	timeframeLow.TimeframeMonths = max(s.TimeframeMonths-timeframeSwing, scenario.MinTimeframeMonths)
	timeframeHigh := s.Clone()
	timeframeHigh.TimeframeMonths = min(s.TimeframeMonths+timeframeSwing, scenario.MaxTimeframeMonths)

	cands := []candidate{
		{name: scenario.FieldBudgetMonthly, label: "monthly budget", low: budgetLow, high: budgetHigh,
			lowV: budgetLow.BudgetMonthly, highV: budgetHigh.BudgetMonthly},
		{name: scenario.FieldMarketComplexity, label: "market complexity", low: complexityLow, high: complexityHigh,
			lowV: complexityLow.MarketComplexity, highV: complexityHigh.MarketComplexity},
		{name: scenario.FieldTimeframeMonths, label: "timeframe", low: timeframeLow, high: timeframeHigh,
			lowV: float64(timeframeLow.TimeframeMonths), highV: float64(timeframeHigh.TimeframeMonths)},
	}

	out := make([]Driver, 0, len(cands))
	for _, c := range cands {
		nLow := Project(c.low, cat).HorizonNet
		nHigh := Project(c.high, cat).HorizonNet
		delta := finiteOrZero(math.Abs(nHigh - nLow))
		verb := "increases"
		if nHigh < nLow {
			verb = "decreases"
		}
		out = append(out, Driver{
			Input:     c.name,
			Low:       c.lowV,
			High:      c.highV,
			NetDelta:  delta,
			Direction: fmt.Sprintf("Higher %s %s net return by $%.0f", c.label, verb, delta),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NetDelta != out[j].NetDelta {
			return out[i].NetDelta > out[j].NetDelta
		}
		return out[i].Input < out[j].Input
	})
	return out
}
