package timeline

import (
	"math"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

// PhasesFromScenario turns the catalog phase templates into durations for s.
// Templates that scale with complexity stretch by the catalog delay factor.
func PhasesFromScenario(cat *catalog.Catalog, s scenario.ScenarioInput) []PhaseDuration {
	out := make([]PhaseDuration, 0, len(cat.Phases))
	for _, tpl := range cat.Phases {
		days := tpl.BaseDays
		if tpl.ScalesWithComplexity {
			stretched := float64(tpl.BaseDays) * (1 + cat.ComplexityDelayFactor*s.MarketComplexity)
			days = int(math.Ceil(stretched - 1e-9))
		}
		out = append(out, PhaseDuration{
			Key:       tpl.Key,
			Label:     tpl.Label,
			Days:      days,
			Parallel:  tpl.Parallel,
			DependsOn: append([]string(nil), tpl.DependsOn...),
		})
	}
	return out
}
