package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/gtm-toolkit/internal/assessment"
	"github.com/joelkehle/gtm-toolkit/internal/projection"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

const Title = "Go-to-Market Scenario Report"

const Disclaimer = "Figures are deterministic projections from catalog coefficients, not forecasts. Treat them as planning estimates."

// BuildMarkdown renders snap as a GFM document. It reads only computed
// outputs and never derives a metric of its own.
func BuildMarkdown(snap toolkit.Snapshot) string {
	out := snap.Outputs
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "- Generated: %s\n", snap.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Catalog version: %s\n", out.Metrics.CatalogVersion)
	fmt.Fprintf(&b, "- Scenario revision: %d\n\n", out.Revision)
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	appendScenario(&b, out)
	appendMetrics(&b, out.Metrics)
	appendPricing(&b, out)
	appendSensitivity(&b, out.Sensitivity)
	appendTimeline(&b, out.Plan)
	appendAssessment(&b, snap.Assessment)
	return b.String()
}

func appendScenario(b *strings.Builder, out toolkit.Outputs) {
	s := out.Scenario
	fmt.Fprintf(b, "## Scenario\n\n")
	fmt.Fprintf(b, "| Input | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Monthly budget | %s |\n", money(s.BudgetMonthly))
	fmt.Fprintf(b, "| Industry | %s |\n", cell(s.Industry))
	fmt.Fprintf(b, "| Company size | %s |\n", cell(string(s.CompanySizeTier)))
	fmt.Fprintf(b, "| Market complexity | %.2f |\n", s.MarketComplexity)
	fmt.Fprintf(b, "| Channels | %s |\n", list(s.ChannelsSelected))
	fmt.Fprintf(b, "| Timeframe | %d months |\n", s.TimeframeMonths)
	fmt.Fprintf(b, "| Desired outcomes | %s |\n\n", list(s.DesiredOutcomes))
}

func appendMetrics(b *strings.Builder, m projection.DerivedMetrics) {
	fmt.Fprintf(b, "## Key Metrics\n\n")
	fmt.Fprintf(b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Projected leads per month | %.2f |\n", m.ProjectedLeadsPerMonth)
	fmt.Fprintf(b, "| New customers per month | %.2f |\n", m.CustomersPerMonth)
	fmt.Fprintf(b, "| Cost per lead (CAC) | %s |\n", metricMoney(m.CAC))
	fmt.Fprintf(b, "| Lifetime value per lead (LTV) | %s |\n", money(m.LTV))
	fmt.Fprintf(b, "| ROI | %s |\n", metricPercent(m.ROIPercent))
	fmt.Fprintf(b, "| Payback | %s |\n", payback(m.Payback))
	fmt.Fprintf(b, "| Time to first revenue | %.1f months |\n", m.TimeToRevenueMonths)
	fmt.Fprintf(b, "| Net at horizon | %s |\n\n", money(m.HorizonNet))
}

func appendPricing(b *strings.Builder, out toolkit.Outputs) {
	fmt.Fprintf(b, "## Pricing\n\n")
	if out.PricingError != "" {
		fmt.Fprintf(b, "- Pricing unavailable: %s\n\n", out.PricingError)
		return
	}
	p := out.Pricing
	fmt.Fprintf(b, "- Engagement tier: **%s** (%s)\n", p.TierName, p.CompanySizeTier)
	fmt.Fprintf(b, "- Estimated range: %s to %s\n", money(p.Low), money(p.High))
	if len(p.Outcomes) > 0 {
		fmt.Fprintf(b, "- Outcome multiplier: %.2fx for %s\n", p.Multiplier, strings.Join(p.Outcomes, ", "))
	}
	b.WriteString("\n")
}

func appendSensitivity(b *strings.Builder, drivers []projection.Driver) {
	fmt.Fprintf(b, "## Sensitivity\n\n")
	if len(drivers) == 0 {
		fmt.Fprintf(b, "- No drivers computed.\n\n")
		return
	}
	fmt.Fprintf(b, "| Input | Low | High | Net swing | Direction |\n|---|---|---|---|---|\n")
	for _, d := range drivers {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", d.Input, number(d.Low), number(d.High), money(d.NetDelta), d.Direction)
	}
	b.WriteString("\n")
}

func appendTimeline(b *strings.Builder, plan timeline.TimelinePlan) {
	fmt.Fprintf(b, "## Launch Timeline\n\n")
	fmt.Fprintf(b, "- Launch start: %s\n", plan.LaunchStart.Format("2006-01-02"))
	fmt.Fprintf(b, "- Plan end: %s (%d days)\n\n", plan.End.Format("2006-01-02"), plan.DayOffset(plan.End))
	fmt.Fprintf(b, "| Phase | Start | End | Days | Notes |\n|---|---|---|---|---|\n")
	for _, m := range plan.Milestones {
		label := m.Label
		if label == "" {
			label = m.Key
		}
		var notes []string
		if m.Parallel {
			notes = append(notes, "parallel")
		}
		if m.Pinned {
			notes = append(notes, "pinned")
		}
		fmt.Fprintf(b, "| %s | %s | %s | %d | %s |\n", cell(label), m.Start.Format("2006-01-02"), m.End.Format("2006-01-02"), m.Days, strings.Join(notes, ", "))
	}
	b.WriteString("\n")
}

func appendAssessment(b *strings.Builder, res *assessment.AssessmentResult) {
	fmt.Fprintf(b, "## Readiness Assessment\n\n")
	if res == nil {
		fmt.Fprintf(b, "No assessment completed yet.\n")
		return
	}
	fmt.Fprintf(b, "- Score: **%.1f / 100** (%s)\n", res.Score, strings.ReplaceAll(string(res.Level), "_", " "))
	fmt.Fprintf(b, "- Required questions answered: %d of %d\n", res.Answered, res.Required)
	if len(res.Missing) > 0 {
		fmt.Fprintf(b, "- Unanswered: %s\n", strings.Join(res.Missing, ", "))
	}
	b.WriteString("\n")

	if len(res.Categories) > 0 {
		fmt.Fprintf(b, "| Category | Points | Max |\n|---|---|---|\n")
		for _, c := range res.Categories {
			fmt.Fprintf(b, "| %s | %s | %s |\n", cell(c.Label), number(c.Points), number(c.MaxPoints))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "### Recommendations\n\n")
	if len(res.Recommendations) == 0 {
		fmt.Fprintf(b, "- None. Every category scored in full.\n")
		return
	}
	for i, r := range res.Recommendations {
		fmt.Fprintf(b, "%d. %s\n", i+1, strings.ReplaceAll(r, "_", " "))
	}
}

func metricMoney(m projection.Metric) string {
	if !m.Defined {
		return notCalculable(m.Reason)
	}
	return money(m.Value)
}

func metricPercent(m projection.Metric) string {
	if !m.Defined {
		return notCalculable(m.Reason)
	}
	return fmt.Sprintf("%.1f%%", m.Value)
}

func payback(p projection.Payback) string {
	if p.State == projection.PaybackUndefined {
		return notCalculable(p.Reason)
	}
	return p.String()
}

func notCalculable(reason string) string {
	if reason == "" {
		return projection.NotCalculable
	}
	return fmt.Sprintf("%s (%s)", projection.NotCalculable, reason)
}

// money formats v as dollars with thousands separators.
func money(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	out := fmt.Sprintf("$%s.%02d", grouped.String(), cents%100)
	if neg && cents != 0 {
		return "-" + out
	}
	return out
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return cell(strings.Join(items, ", "))
}

func cell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
}
