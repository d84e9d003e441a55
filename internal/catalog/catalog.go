package catalog

import "sort"

type CompanySizeTier string

const (
	TierStartup    CompanySizeTier = "startup"
	TierSMB        CompanySizeTier = "smb"
	TierMidmarket  CompanySizeTier = "midmarket"
	TierEnterprise CompanySizeTier = "enterprise"
)

// SizeTiers lists the company size tiers smallest first.
var SizeTiers = []CompanySizeTier{TierStartup, TierSMB, TierMidmarket, TierEnterprise}

func (t CompanySizeTier) Valid() bool {
	for _, v := range SizeTiers {
		if t == v {
			return true
		}
	}
	return false
}

type Industry struct {
	Key               string  `json:"key" yaml:"key,omitempty"`
	Label             string  `json:"label" yaml:"label"`
	LeadMultiplier    float64 `json:"lead_multiplier" yaml:"lead_multiplier"`
	AvgMonthlyRevenue float64 `json:"avg_monthly_revenue" yaml:"avg_monthly_revenue"`
	GrossMargin       float64 `json:"gross_margin" yaml:"gross_margin"`
	MonthlyChurn      float64 `json:"monthly_churn" yaml:"monthly_churn"`
	CloseRate         float64 `json:"close_rate" yaml:"close_rate"`
	SalesCycleMonths  float64 `json:"sales_cycle_months" yaml:"sales_cycle_months"`
}

type Channel struct {
	Key         string  `json:"key" yaml:"key,omitempty"`
	Label       string  `json:"label" yaml:"label"`
	CostPerLead float64 `json:"cost_per_lead" yaml:"cost_per_lead"`
	Efficiency  float64 `json:"efficiency" yaml:"efficiency"`
	RampMonths  float64 `json:"ramp_months" yaml:"ramp_months"`
}

// PricingBreakpoint opens a pricing tier at Complexity. Bounds between two
// breakpoints are interpolated toward the next one.
type PricingBreakpoint struct {
	Complexity float64 `json:"complexity" yaml:"complexity"`
	Name       string  `json:"name" yaml:"name"`
	Low        float64 `json:"low" yaml:"low"`
	High       float64 `json:"high" yaml:"high"`
}

type Outcome struct {
	Key    string  `json:"key" yaml:"key,omitempty"`
	Label  string  `json:"label" yaml:"label"`
	Uplift float64 `json:"uplift" yaml:"uplift"`
}

// Category groups assessment questions. Priority is the stable tie-break
// order for recommendations, lowest first.
type Category struct {
	Key             string   `json:"key" yaml:"key"`
	Label           string   `json:"label" yaml:"label"`
	Priority        int      `json:"priority" yaml:"priority"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

type Question struct {
	Key      string             `json:"key" yaml:"key"`
	Category string             `json:"category" yaml:"category"`
	Prompt   string             `json:"prompt" yaml:"prompt"`
	Required bool               `json:"required" yaml:"required"`
	Options  map[string]float64 `json:"options" yaml:"options"`
}

// MaxPoints is the weight of the best answer.
func (q Question) MaxPoints() float64 {
	best := 0.0
	for _, w := range q.Options {
		if w > best {
			best = w
		}
	}
	return best
}

type PhaseTemplate struct {
	Key                  string   `json:"key" yaml:"key"`
	Label                string   `json:"label" yaml:"label"`
	BaseDays             int      `json:"base_days" yaml:"base_days"`
	Parallel             bool     `json:"parallel" yaml:"parallel"`
	DependsOn            []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ScalesWithComplexity bool     `json:"scales_with_complexity" yaml:"scales_with_complexity"`
}

type ScenarioDefaults struct {
	BudgetMonthly    float64         `json:"budget_monthly" yaml:"budget_monthly"`
	Industry         string          `json:"industry" yaml:"industry"`
	CompanySizeTier  CompanySizeTier `json:"company_size_tier" yaml:"company_size_tier"`
	MarketComplexity float64         `json:"market_complexity" yaml:"market_complexity"`
	Channels         []string        `json:"channels" yaml:"channels"`
	TimeframeMonths  int             `json:"timeframe_months" yaml:"timeframe_months"`
	Outcomes         []string        `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// Catalog is the versioned set of reference tables every engine reads.
// A catalog must not be modified once it has been handed to a store or engine.
type Catalog struct {
	Version                 string                                  `json:"version" yaml:"version"`
	Industries              map[string]Industry                     `json:"industries" yaml:"industries"`
	Channels                map[string]Channel                      `json:"channels" yaml:"channels"`
	ComplexityLeadDampening float64                                 `json:"complexity_lead_dampening" yaml:"complexity_lead_dampening"`
	ComplexityDelayFactor   float64                                 `json:"complexity_delay_factor" yaml:"complexity_delay_factor"`
	Pricing                 map[CompanySizeTier][]PricingBreakpoint `json:"pricing" yaml:"pricing"`
	Outcomes                map[string]Outcome                      `json:"outcomes" yaml:"outcomes"`
	Categories              []Category                              `json:"categories" yaml:"categories"`
	Questions               []Question                              `json:"questions" yaml:"questions"`
	Phases                  []PhaseTemplate                         `json:"phases" yaml:"phases"`
	Defaults                ScenarioDefaults                        `json:"defaults" yaml:"defaults"`
}

// Industry returns the industry table for key, falling back to "default".
func (c *Catalog) Industry(key string) Industry {
	if ind, ok := c.Industries[key]; ok {
		return ind
	}
	return c.Industries["default"]
}

func (c *Catalog) HasIndustry(key string) bool {
	_, ok := c.Industries[key]
	return ok
}

func (c *Catalog) Channel(key string) (Channel, bool) {
	ch, ok := c.Channels[key]
	return ch, ok
}

func (c *Catalog) Outcome(key string) (Outcome, bool) {
	o, ok := c.Outcomes[key]
	return o, ok
}

func (c *Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

func (c *Catalog) IndustryKeys() []string { return sortedKeys(c.Industries) }
func (c *Catalog) ChannelKeys() []string  { return sortedKeys(c.Channels) }
func (c *Catalog) OutcomeKeys() []string  { return sortedKeys(c.Outcomes) }

// RequiredQuestions counts questions marked required.
func (c *Catalog) RequiredQuestions() int {
	n := 0
	for _, q := range c.Questions {
		if q.Required {
			n++
		}
	}
	return n
}

// fillKeys copies map keys into the Key field of each entry so tables
// decoded from a file carry their own identity.
func (c *Catalog) fillKeys() {
	for k, v := range c.Industries {
		v.Key = k
		c.Industries[k] = v
	}
	for k, v := range c.Channels {
		v.Key = k
		c.Channels[k] = v
	}
	for k, v := range c.Outcomes {
		v.Key = k
		c.Outcomes[k] = v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
