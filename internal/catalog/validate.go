package catalog

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks every table against the invariants the engines rely on.
// The first violation is returned as "table[key]: reason".
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("version: required")
	}
	if err := c.validateIndustries(); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	if !finiteIn(c.ComplexityLeadDampening, 0, 1) || c.ComplexityLeadDampening == 1 {
		return fmt.Errorf("complexity_lead_dampening: must be in [0,1)")
	}
	if !finite(c.ComplexityDelayFactor) || c.ComplexityDelayFactor < 0 {
		return fmt.Errorf("complexity_delay_factor: must be >= 0")
	}
	if err := c.validatePricing(); err != nil {
		return err
	}
	for key, o := range c.Outcomes {
		if !finite(o.Uplift) || o.Uplift < 0 {
			return fmt.Errorf("outcomes[%s]: uplift must be >= 0", key)
		}
	}
	if err := c.validateAssessment(); err != nil {
		return err
	}
	if err := c.validatePhases(); err != nil {
		return err
	}
	return c.validateDefaults()
}

func (c *Catalog) validateIndustries() error {
	if _, ok := c.Industries["default"]; !ok {
		return fmt.Errorf("industries[default]: missing")
	}
	for key, ind := range c.Industries {
		switch {
		case !finite(ind.LeadMultiplier) || ind.LeadMultiplier <= 0:
			return fmt.Errorf("industries[%s]: lead_multiplier must be > 0", key)
		case !finite(ind.AvgMonthlyRevenue) || ind.AvgMonthlyRevenue < 0:
			return fmt.Errorf("industries[%s]: avg_monthly_revenue must be >= 0", key)
		case !finiteIn(ind.GrossMargin, 0, 1):
			return fmt.Errorf("industries[%s]: gross_margin must be in [0,1]", key)
		case !finiteIn(ind.MonthlyChurn, 0, 1) || ind.MonthlyChurn == 0:
			return fmt.Errorf("industries[%s]: monthly_churn must be in (0,1]", key)
		case !finiteIn(ind.CloseRate, 0, 1):
			return fmt.Errorf("industries[%s]: close_rate must be in [0,1]", key)
		case !finite(ind.SalesCycleMonths) || ind.SalesCycleMonths < 0:
			return fmt.Errorf("industries[%s]: sales_cycle_months must be >= 0", key)
		}
	}
	return nil
}

func (c *Catalog) validateChannels() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("channels: at least one channel required")
	}
	for key, ch := range c.Channels {
		switch {
		case !finite(ch.CostPerLead) || ch.CostPerLead <= 0:
			return fmt.Errorf("channels[%s]: cost_per_lead must be > 0", key)
		case !finiteIn(ch.Efficiency, 0, 1) || ch.Efficiency == 0:
			return fmt.Errorf("channels[%s]: efficiency must be in (0,1]", key)
		case !finite(ch.RampMonths) || ch.RampMonths < 0:
			return fmt.Errorf("channels[%s]: ramp_months must be >= 0", key)
		}
	}
	return nil
}

func (c *Catalog) validatePricing() error {
	for _, tier := range SizeTiers {
		ladder := c.Pricing[tier]
		if len(ladder) == 0 {
			return fmt.Errorf("pricing[%s]: at least one breakpoint required", tier)
		}
		if ladder[0].Complexity != 0 {
			return fmt.Errorf("pricing[%s]: first breakpoint must be at complexity 0", tier)
		}
		for i, bp := range ladder {
			if strings.TrimSpace(bp.Name) == "" {
				return fmt.Errorf("pricing[%s][%d]: name required", tier, i)
			}
			if !finiteIn(bp.Complexity, 0, 1) {
				return fmt.Errorf("pricing[%s][%d]: complexity must be in [0,1]", tier, i)
			}
			if !finite(bp.Low) || !finite(bp.High) || bp.Low < 0 || bp.Low > bp.High {
				return fmt.Errorf("pricing[%s][%d]: bounds must satisfy 0 <= low <= high", tier, i)
			}
			if i == 0 {
				continue
			}
			prev := ladder[i-1]
			if bp.Complexity <= prev.Complexity {
				return fmt.Errorf("pricing[%s][%d]: complexity must increase", tier, i)
			}
			if bp.Low < prev.Low || bp.High < prev.High {
				return fmt.Errorf("pricing[%s][%d]: bounds must not decrease", tier, i)
			}
		}
	}
	for tier := range c.Pricing {
		if !tier.Valid() {
			return fmt.Errorf("pricing[%s]: unknown company size tier", tier)
		}
	}
	return nil
}

func (c *Catalog) validateAssessment() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("categories: at least one category required")
	}
	seenCat := map[string]bool{}
	seenPriority := map[int]string{}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Key) == "" {
			return fmt.Errorf("categories: key required")
		}
		if seenCat[cat.Key] {
			return fmt.Errorf("categories[%s]: duplicate key", cat.Key)
		}
		seenCat[cat.Key] = true
		if other, ok := seenPriority[cat.Priority]; ok {
			return fmt.Errorf("categories[%s]: priority %d already used by %s", cat.Key, cat.Priority, other)
		}
		seenPriority[cat.Priority] = cat.Key
		if len(cat.Recommendations) == 0 {
			return fmt.Errorf("categories[%s]: at least one recommendation required", cat.Key)
		}
	}
	weighted := map[string]bool{}
	seenQ := map[string]bool{}
	for _, q := range c.Questions {
		if strings.TrimSpace(q.Key) == "" {
			return fmt.Errorf("questions: key required")
		}
		if seenQ[q.Key] {
			return fmt.Errorf("questions[%s]: duplicate key", q.Key)
		}
		seenQ[q.Key] = true
		if !seenCat[q.Category] {
			return fmt.Errorf("questions[%s]: unknown category %q", q.Key, q.Category)
		}
		for opt, w := range q.Options {
			if !finite(w) || w < 0 {
				return fmt.Errorf("questions[%s]: option %q weight must be >= 0", q.Key, opt)
			}
		}
		if q.MaxPoints() <= 0 {
			return fmt.Errorf("questions[%s]: at least one option must carry weight", q.Key)
		}
		weighted[q.Category] = true
	}
	for _, cat := range c.Categories {
		if !weighted[cat.Key] {
			return fmt.Errorf("categories[%s]: no weighted questions", cat.Key)
		}
	}
	return nil
}

func (c *Catalog) validatePhases() error {
	if len(c.Phases) == 0 {
		return fmt.Errorf("phases: at least one phase required")
	}
	seen := map[string]bool{}
	for _, p := range c.Phases {
		if strings.TrimSpace(p.Key) == "" {
			return fmt.Errorf("phases: key required")
		}
		if seen[p.Key] {
			return fmt.Errorf("phases[%s]: duplicate key", p.Key)
		}
		if p.BaseDays < 1 {
			return fmt.Errorf("phases[%s]: base_days must be >= 1", p.Key)
		}
		for _, dep := range p.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("phases[%s]: dependency %q must be an earlier phase", p.Key, dep)
			}
		}
		seen[p.Key] = true
	}
	return nil
}

func (c *Catalog) validateDefaults() error {
	d := c.Defaults
	switch {
	case !finite(d.BudgetMonthly) || d.BudgetMonthly < 0:
		return fmt.Errorf("defaults: budget_monthly must be >= 0")
	case !c.HasIndustry(d.Industry):
		return fmt.Errorf("defaults: unknown industry %q", d.Industry)
	case !d.CompanySizeTier.Valid():
		return fmt.Errorf("defaults: unknown company size tier %q", d.CompanySizeTier)
	case !finiteIn(d.MarketComplexity, 0, 1):
		return fmt.Errorf("defaults: market_complexity must be in [0,1]")
	case len(d.Channels) == 0:
		return fmt.Errorf("defaults: at least one channel required")
	case d.TimeframeMonths < 1 || d.TimeframeMonths > 36:
		return fmt.Errorf("defaults: timeframe_months must be in [1,36]")
	}
	for _, ch := range d.Channels {
		if _, ok := c.Channels[ch]; !ok {
			return fmt.Errorf("defaults: unknown channel %q", ch)
		}
	}
	for _, o := range d.Outcomes {
		if _, ok := c.Outcomes[o]; !ok {
			return fmt.Errorf("defaults: unknown outcome %q", o)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteIn(v, lo, hi float64) bool {
	return finite(v) && v >= lo && v <= hi
}
