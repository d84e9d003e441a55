package projection

import (
	"math"
	"sort"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

type DerivedMetrics struct {
	CatalogVersion         string       `json:"catalog_version"`
	CAC                    Metric       `json:"cac"`
	LTV                    float64      `json:"ltv"`
	ROIPercent             Metric       `json:"roi_percent"`
	ProjectedLeadsPerMonth float64      `json:"projected_leads_per_month"`
	CustomersPerMonth      float64      `json:"customers_per_month"`
	Payback                Payback      `json:"payback"`
	TimeToRevenueMonths    float64      `json:"time_to_revenue_months"`
	HorizonNet             float64      `json:"horizon_net"`
	Series                 []MonthPoint `json:"series"`
}

// MonthPoint is one month of the cohort walk used for payback and charts.
type MonthPoint struct {
	Month                 int     `json:"month"`
	Spend                 float64 `json:"spend"`
	GrossProfit           float64 `json:"gross_profit"`
	CumulativeSpend       float64 `json:"cumulative_spend"`
	CumulativeGrossProfit float64 `json:"cumulative_gross_profit"`
	ActiveCustomers       float64 `json:"active_customers"`
}

// Project derives every metric for s from the catalog tables. It has no
// side effects; identical inputs give bit-identical outputs.
func Project(s scenario.ScenarioInput, cat *catalog.Catalog) DerivedMetrics {
	ind := cat.Industry(s.Industry)
	channels := selectedChannels(s.ChannelsSelected, cat)

	leads := projectedLeads(s.BudgetMonthly, s.MarketComplexity, ind, channels, cat.ComplexityLeadDampening)
	ttr := timeToRevenue(s.MarketComplexity, ind, channels, cat.ComplexityDelayFactor)
	customerLTV := 0.0
	if ind.MonthlyChurn > 0 {
		customerLTV = ind.AvgMonthlyRevenue * ind.GrossMargin / ind.MonthlyChurn
	}
	ltv := customerLTV * ind.CloseRate

	out := DerivedMetrics{
		CatalogVersion:         cat.Version,
		LTV:                    ltv,
		ProjectedLeadsPerMonth: leads,
		CustomersPerMonth:      leads * ind.CloseRate,
		TimeToRevenueMonths:    ttr,
	}

	if leads > 0 {
		out.CAC = DefinedMetric(s.BudgetMonthly / leads)
	} else {
		out.CAC = UndefinedMetric(ReasonNoLeads)
	}
	switch {
	case !out.CAC.Defined:
		out.ROIPercent = UndefinedMetric(out.CAC.Reason)
	case out.CAC.Value == 0:
		out.ROIPercent = UndefinedMetric(ReasonZeroCAC)
	default:
		out.ROIPercent = DefinedMetric((ltv - out.CAC.Value) / out.CAC.Value * 100)
	}

	out.Series, out.Payback = walkMonths(s, ind, out.CustomersPerMonth, ttr)
	if n := len(out.Series); n > 0 {
		last := out.Series[n-1]
		out.HorizonNet = last.CumulativeGrossProfit - last.CumulativeSpend
	}
	return guard(out)
}

func selectedChannels(keys []string, cat *catalog.Catalog) []catalog.Channel {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	out := make([]catalog.Channel, 0, len(sorted))
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		if ch, ok := cat.Channel(k); ok {
			out = append(out, ch)
		}
	}
	return out
}

// projectedLeads splits the budget evenly across channels. Every term is a
// non-negative multiple of budget, so leads never fall as budget rises.
func projectedLeads(budget, complexity float64, ind catalog.Industry, channels []catalog.Channel, dampening float64) float64 {
	if len(channels) == 0 || budget <= 0 {
		return 0
	}
	share := budget / float64(len(channels))
	raw := 0.0
	for _, ch := range channels {
		raw += share / ch.CostPerLead * ch.Efficiency
	}
	return raw * ind.LeadMultiplier * (1 - dampening*complexity)
}

func timeToRevenue(complexity float64, ind catalog.Industry, channels []catalog.Channel, delay float64) float64 {
	ramp := 0.0
	if len(channels) > 0 {
		for _, ch := range channels {
			ramp += ch.RampMonths
		}
		ramp /= float64(len(channels))
	}
	return (ind.SalesCycleMonths + ramp) * (1 + delay*complexity)
}

// walkMonths converts each month's leads into a customer cohort that starts
// paying once time to revenue has elapsed and then churns geometrically.
func walkMonths(s scenario.ScenarioInput, ind catalog.Industry, newCustomers, ttr float64) ([]MonthPoint, Payback) {
	lag := int(math.Ceil(ttr))
	retention := 1 - ind.MonthlyChurn
	perCustomer := ind.AvgMonthlyRevenue * ind.GrossMargin

	series := make([]MonthPoint, 0, s.TimeframeMonths)
	payback := Payback{State: PaybackBeyondHorizon}
	if s.BudgetMonthly <= 0 {
		payback = Payback{State: PaybackUndefined, Reason: ReasonNoSpend}
	}

	active, cumSpend, cumGross := 0.0, 0.0, 0.0
	for m := 1; m <= s.TimeframeMonths; m++ {
		active *= retention
		if m-lag >= 1 {
			active += newCustomers
		}
		gross := active * perCustomer
		cumSpend += s.BudgetMonthly
		cumGross += gross
		series = append(series, MonthPoint{
			Month:                 m,
			Spend:                 s.BudgetMonthly,
			GrossProfit:           gross,
			CumulativeSpend:       cumSpend,
			CumulativeGrossProfit: cumGross,
			ActiveCustomers:       active,
		})
		if payback.State == PaybackBeyondHorizon && cumGross >= cumSpend {
			payback = Payback{State: PaybackReached, Months: m}
		}
	}
	return series, payback
}

func guard(d DerivedMetrics) DerivedMetrics {
	d.CAC = recheck(d.CAC)
	d.ROIPercent = recheck(d.ROIPercent)
	d.LTV = finiteOrZero(d.LTV)
	d.ProjectedLeadsPerMonth = finiteOrZero(d.ProjectedLeadsPerMonth)
	d.CustomersPerMonth = finiteOrZero(d.CustomersPerMonth)
	d.TimeToRevenueMonths = finiteOrZero(d.TimeToRevenueMonths)
	d.HorizonNet = finiteOrZero(d.HorizonNet)
	for i := range d.Series {
		p := &d.Series[i]
		p.Spend = finiteOrZero(p.Spend)
		p.GrossProfit = finiteOrZero(p.GrossProfit)
		p.CumulativeSpend = finiteOrZero(p.CumulativeSpend)
		p.CumulativeGrossProfit = finiteOrZero(p.CumulativeGrossProfit)
		p.ActiveCustomers = finiteOrZero(p.ActiveCustomers)
	}
	return d
}

func recheck(m Metric) Metric {
	if !m.Defined {
		return m
	}
	return DefinedMetric(m.Value)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
