package catalog

const DefaultVersion = "2025.1"

// Default returns the built-in reference tables. Each call returns a fresh
// copy so callers cannot alias one another's catalog.
func Default() *Catalog {
	c := &Catalog{
		Version:                 DefaultVersion,
		Industries:              map[string]Industry{},
		Channels:                map[string]Channel{},
		ComplexityLeadDampening: 0.45,
		ComplexityDelayFactor:   0.6,
		Pricing:                 map[CompanySizeTier][]PricingBreakpoint{},
		Outcomes:                map[string]Outcome{},
	}
	for k, v := range defaultIndustries {
		c.Industries[k] = v
	}
	for k, v := range defaultChannels {
		c.Channels[k] = v
	}
	for k, v := range defaultPricing {
		c.Pricing[k] = append([]PricingBreakpoint(nil), v...)
	}
	for k, v := range defaultOutcomes {
		c.Outcomes[k] = v
	}
	for _, cat := range defaultCategories {
		cat.Recommendations = append([]string(nil), cat.Recommendations...)
		c.Categories = append(c.Categories, cat)
	}
	for _, q := range defaultQuestions {
		opts := make(map[string]float64, len(q.Options))
		for k, v := range q.Options {
			opts[k] = v
		}
		q.Options = opts
		c.Questions = append(c.Questions, q)
	}
	for _, p := range defaultPhases {
		p.DependsOn = append([]string(nil), p.DependsOn...)
		c.Phases = append(c.Phases, p)
	}
	c.Defaults = ScenarioDefaults{
		BudgetMonthly:    5000,
		Industry:         "saas",
		CompanySizeTier:  TierSMB,
		MarketComplexity: 0.5,
		Channels:         []string{"ppc", "seo"},
		TimeframeMonths:  12,
	}
	c.fillKeys()
	return c
}

var defaultIndustries = map[string]Industry{
	"default": {
		Label:             "General B2B",
		LeadMultiplier:    1.0,
		AvgMonthlyRevenue: 300,
		GrossMargin:       0.60,
		MonthlyChurn:      0.03,
		CloseRate:         0.04,
		SalesCycleMonths:  2,
	},
	"saas": {
		Label:             "SaaS",
		LeadMultiplier:    1.10,
		AvgMonthlyRevenue: 450,
		GrossMargin:       0.78,
		MonthlyChurn:      0.025,
		CloseRate:         0.03,
		SalesCycleMonths:  2,
	},
	"ecommerce": {
		Label:             "E-commerce",
		LeadMultiplier:    1.35,
		AvgMonthlyRevenue: 85,
		GrossMargin:       0.42,
		MonthlyChurn:      0.08,
		CloseRate:         0.09,
		SalesCycleMonths:  0.5,
	},
	"fintech": {
		Label:             "Fintech",
		LeadMultiplier:    0.85,
		AvgMonthlyRevenue: 900,
		GrossMargin:       0.70,
		MonthlyChurn:      0.015,
		CloseRate:         0.025,
		SalesCycleMonths:  4,
	},
	"healthcare": {
		Label:             "Healthcare",
		LeadMultiplier:    0.70,
		AvgMonthlyRevenue: 1200,
		GrossMargin:       0.65,
		MonthlyChurn:      0.012,
		CloseRate:         0.02,
		SalesCycleMonths:  6,
	},
	"manufacturing": {
		Label:             "Manufacturing",
		LeadMultiplier:    0.80,
		AvgMonthlyRevenue: 2500,
		GrossMargin:       0.35,
		MonthlyChurn:      0.01,
		CloseRate:         0.03,
		SalesCycleMonths:  5,
	},
	"professional_services": {
		Label:             "Professional services",
		LeadMultiplier:    0.95,
		AvgMonthlyRevenue: 1500,
		GrossMargin:       0.50,
		MonthlyChurn:      0.04,
		CloseRate:         0.05,
		SalesCycleMonths:  1.5,
	},
}

var defaultChannels = map[string]Channel{
	"seo":          {Label: "Search engine optimization", CostPerLead: 45, Efficiency: 0.70, RampMonths: 4},
	"ppc":          {Label: "Paid search", CostPerLead: 60, Efficiency: 0.90, RampMonths: 1},
	"social":       {Label: "Paid social", CostPerLead: 40, Efficiency: 0.55, RampMonths: 1.5},
	"content":      {Label: "Content marketing", CostPerLead: 55, Efficiency: 0.65, RampMonths: 3},
	"email":        {Label: "Email nurture", CostPerLead: 20, Efficiency: 0.50, RampMonths: 1},
	"events":       {Label: "Events and trade shows", CostPerLead: 180, Efficiency: 0.85, RampMonths: 2},
	"outbound":     {Label: "Outbound sales", CostPerLead: 120, Efficiency: 0.75, RampMonths: 2},
	"partnerships": {Label: "Partnerships", CostPerLead: 90, Efficiency: 0.80, RampMonths: 5},
}

var defaultPricing = map[CompanySizeTier][]PricingBreakpoint{
	TierStartup: {
		{Complexity: 0.0, Name: "essentials", Low: 2500, High: 5000},
		{Complexity: 0.3, Name: "growth", Low: 4500, High: 8500},
		{Complexity: 0.6, Name: "accelerate", Low: 7000, High: 13000},
		{Complexity: 0.85, Name: "transform", Low: 10000, High: 18000},
	},
	TierSMB: {
		{Complexity: 0.0, Name: "essentials", Low: 5000, High: 9000},
		{Complexity: 0.3, Name: "growth", Low: 8500, High: 15000},
		{Complexity: 0.6, Name: "accelerate", Low: 13000, High: 24000},
		{Complexity: 0.85, Name: "transform", Low: 19000, High: 35000},
	},
	TierMidmarket: {
		{Complexity: 0.0, Name: "essentials", Low: 12000, High: 20000},
		{Complexity: 0.3, Name: "growth", Low: 18000, High: 32000},
		{Complexity: 0.6, Name: "accelerate", Low: 28000, High: 50000},
		{Complexity: 0.85, Name: "transform", Low: 40000, High: 75000},
	},
	TierEnterprise: {
		{Complexity: 0.0, Name: "essentials", Low: 30000, High: 50000},
		{Complexity: 0.3, Name: "growth", Low: 45000, High: 80000},
		{Complexity: 0.6, Name: "accelerate", Low: 70000, High: 125000},
		{Complexity: 0.85, Name: "transform", Low: 100000, High: 190000},
	},
}

var defaultOutcomes = map[string]Outcome{
	"brand_awareness":  {Label: "Brand awareness", Uplift: 0.10},
	"lead_generation":  {Label: "Lead generation", Uplift: 0.15},
	"product_launch":   {Label: "Product launch", Uplift: 0.20},
	"market_expansion": {Label: "Market expansion", Uplift: 0.25},
	"sales_enablement": {Label: "Sales enablement", Uplift: 0.12},
}

var defaultCategories = []Category{
	{Key: "strategy", Label: "Strategy and positioning", Priority: 1, Recommendations: []string{
		"define_value_proposition",
		"document_ideal_customer_profile",
		"align_leadership_on_launch_goals",
	}},
	{Key: "market", Label: "Market understanding", Priority: 2, Recommendations: []string{
		"run_customer_discovery_interviews",
		"map_competitive_landscape",
		"size_addressable_market",
	}},
	{Key: "product", Label: "Product readiness", Priority: 3, Recommendations: []string{
		"validate_product_market_fit",
		"finalize_pricing_and_packaging",
		"prepare_onboarding_flow",
	}},
	{Key: "sales", Label: "Sales readiness", Priority: 4, Recommendations: []string{
		"build_repeatable_sales_playbook",
		"train_sales_team_on_messaging",
		"set_up_crm_pipeline_stages",
	}},
	{Key: "marketing", Label: "Marketing operations", Priority: 5, Recommendations: []string{
		"instrument_funnel_analytics",
		"prioritize_two_acquisition_channels",
		"build_launch_content_calendar",
	}},
}

var defaultQuestions = []Question{
	{Key: "value_proposition", Category: "strategy", Prompt: "How clearly is your value proposition defined?", Required: true,
		Options: map[string]float64{"none": 0, "informal": 1, "documented": 2, "validated": 3}},
	{Key: "ideal_customer", Category: "strategy", Prompt: "Have you defined your ideal customer profile?", Required: true,
		Options: map[string]float64{"no": 0, "partially": 1.5, "yes": 3}},
	{Key: "customer_research", Category: "market", Prompt: "How many customer discovery interviews have you run?", Required: true,
		Options: map[string]float64{"none": 0, "under_10": 1, "10_to_30": 2, "over_30": 3}},
	{Key: "competitor_analysis", Category: "market", Prompt: "Do you track your main competitors?", Required: true,
		Options: map[string]float64{"no": 0, "informally": 1, "documented": 2}},
	{Key: "product_market_fit", Category: "product", Prompt: "What evidence of product-market fit do you have?", Required: true,
		Options: map[string]float64{"none": 0, "anecdotal": 1, "pilot_customers": 2, "retained_paying_customers": 4}},
	{Key: "pricing_model", Category: "product", Prompt: "Is your pricing model finalized?", Required: true,
		Options: map[string]float64{"no": 0, "testing": 1, "yes": 2}},
	{Key: "sales_process", Category: "sales", Prompt: "Is your sales process documented?", Required: true,
		Options: map[string]float64{"no": 0, "partially": 1, "yes": 2}},
	{Key: "sales_team", Category: "sales", Prompt: "Who sells today?", Required: true,
		Options: map[string]float64{"nobody": 0, "founders": 1, "dedicated_reps": 2}},
	{Key: "acquisition_channels", Category: "marketing", Prompt: "How many acquisition channels are proven?", Required: true,
		Options: map[string]float64{"none": 0, "one": 1, "two_or_more": 2}},
	{Key: "analytics", Category: "marketing", Prompt: "Can you measure conversion at each funnel stage?", Required: true,
		Options: map[string]float64{"no": 0, "partially": 1, "yes": 2}},
	{Key: "onboarding", Category: "product", Prompt: "Do new customers have a guided onboarding?", Required: false,
		Options: map[string]float64{"no": 0, "manual": 0.5, "self_serve": 1}},
	{Key: "launch_budget", Category: "marketing", Prompt: "Is a launch budget approved?", Required: false,
		Options: map[string]float64{"no": 0, "pending": 0.5, "yes": 1}},
}

var defaultPhases = []PhaseTemplate{
	{Key: "market_research", Label: "Market research", BaseDays: 21, ScalesWithComplexity: true},
	{Key: "positioning", Label: "Positioning and messaging", BaseDays: 14, DependsOn: []string{"market_research"}, ScalesWithComplexity: true},
	{Key: "content_creation", Label: "Content creation", BaseDays: 21, Parallel: true, DependsOn: []string{"market_research"}},
	{Key: "channel_setup", Label: "Channel setup", BaseDays: 14, DependsOn: []string{"positioning"}},
	{Key: "beta_launch", Label: "Beta launch", BaseDays: 14, ScalesWithComplexity: true},
	{Key: "public_launch", Label: "Public launch", BaseDays: 7},
	{Key: "optimization", Label: "Optimization", BaseDays: 30},
}
