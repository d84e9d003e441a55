package projection

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

func diff(a, b float64) float64 {
	return math.Abs(a - b)
}

func saasScenario() scenario.ScenarioInput {
	return scenario.ScenarioInput{
		BudgetMonthly:    5000,
		Industry:         "saas",
		CompanySizeTier:  catalog.TierSMB,
		MarketComplexity: 0.3,
		ChannelsSelected: []string{"seo", "ppc"},
		TimeframeMonths:  12,
	}
}

func assertFinite(t *testing.T, d DerivedMetrics) {
	t.Helper()
	floats := map[string]float64{
		"ltv":             d.LTV,
		"leads":           d.ProjectedLeadsPerMonth,
		"customers":       d.CustomersPerMonth,
		"time_to_revenue": d.TimeToRevenueMonths,
		"horizon_net":     d.HorizonNet,
		"cac":             d.CAC.Value,
		"roi":             d.ROIPercent.Value,
	}
	for name, v := range floats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s is not finite: %v", name, v)
		}
	}
	for _, p := range d.Series {
		for _, v := range []float64{p.Spend, p.GrossProfit, p.CumulativeSpend, p.CumulativeGrossProfit, p.ActiveCustomers} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("month %d has non-finite value %v", p.Month, v)
			}
		}
	}
	if d.LTV < 0 {
		t.Fatalf("ltv must be >= 0, got %v", d.LTV)
	}
	if d.CAC.Defined && d.CAC.Value < 0 {
		t.Fatalf("cac must be >= 0, got %v", d.CAC.Value)
	}
}

func TestProjectSaaSKnownValues(t *testing.T) {
	d := Project(saasScenario(), catalog.Default())
	assertFinite(t, d)

	if diff(d.ProjectedLeadsPerMonth, 72.684027777) > 1e-6 {
		t.Fatalf("unexpected leads %v", d.ProjectedLeadsPerMonth)
	}
	if !d.CAC.Defined || diff(d.CAC.Value, 68.790904) > 1e-5 {
		t.Fatalf("unexpected cac %+v", d.CAC)
	}
	if diff(d.LTV, 421.2) > 1e-9 {
		t.Fatalf("unexpected ltv %v", d.LTV)
	}
	if !d.ROIPercent.Defined || diff(d.ROIPercent.Value, 512.29025) > 1e-4 {
		t.Fatalf("unexpected roi %+v", d.ROIPercent)
	}
	if diff(d.TimeToRevenueMonths, 5.31) > 1e-9 {
		t.Fatalf("unexpected time to revenue %v", d.TimeToRevenueMonths)
	}
	if d.Payback.State != PaybackBeyondHorizon {
		t.Fatalf("expected beyond horizon within 12 months, got %+v", d.Payback)
	}
	if len(d.Series) != 12 {
		t.Fatalf("expected 12 months, got %d", len(d.Series))
	}
	if d.Series[5].ActiveCustomers != 0 || d.Series[6].ActiveCustomers == 0 {
		t.Fatalf("first cohort should start paying in month 7: %+v", d.Series[5:7])
	}
	if d.CatalogVersion != catalog.DefaultVersion {
		t.Fatalf("unexpected catalog version %q", d.CatalogVersion)
	}
}

func TestProjectPaybackReachedOnLongerHorizon(t *testing.T) {
	s := saasScenario()
	s.TimeframeMonths = 36
	d := Project(s, catalog.Default())
	if d.Payback.State != PaybackReached || d.Payback.Months != 25 {
		t.Fatalf("expected payback at month 25, got %+v", d.Payback)
	}
	if d.HorizonNet <= 0 {
		t.Fatalf("expected positive net at 36 months, got %v", d.HorizonNet)
	}
	at := d.Series[d.Payback.Months-1]
	if at.CumulativeGrossProfit < at.CumulativeSpend {
		t.Fatalf("payback month does not cover spend: %+v", at)
	}
	before := d.Series[d.Payback.Months-2]
	if before.CumulativeGrossProfit >= before.CumulativeSpend {
		t.Fatalf("payback should be the first covering month: %+v", before)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	cat := catalog.Default()
	a := Project(saasScenario(), cat)
	b := Project(saasScenario(), cat)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("project not deterministic:\n%+v\n%+v", a, b)
	}
	if math.Float64bits(a.ROIPercent.Value) != math.Float64bits(b.ROIPercent.Value) {
		t.Fatal("roi not bit-identical")
	}
}

func TestProjectChannelOrderDoesNotMatter(t *testing.T) {
	cat := catalog.Default()
	a := saasScenario()
	a.ChannelsSelected = []string{"seo", "ppc", "email"}
	b := saasScenario()
	b.ChannelsSelected = []string{"email", "ppc", "seo"}
	if !reflect.DeepEqual(Project(a, cat), Project(b, cat)) {
		t.Fatal("channel order changed the projection")
	}
}

func TestProjectZeroBudgetYieldsUndefinedMetrics(t *testing.T) {
	s := saasScenario()
	s.BudgetMonthly = 0
	d := Project(s, catalog.Default())
	assertFinite(t, d)
	if d.CAC.Defined || d.CAC.Reason != ReasonNoLeads {
		t.Fatalf("expected undefined cac, got %+v", d.CAC)
	}
	if d.ROIPercent.Defined {
		t.Fatalf("expected undefined roi, got %+v", d.ROIPercent)
	}
	if d.Payback.State != PaybackUndefined {
		t.Fatalf("expected undefined payback, got %+v", d.Payback)
	}
	if d.ProjectedLeadsPerMonth != 0 {
		t.Fatalf("expected zero leads, got %v", d.ProjectedLeadsPerMonth)
	}
	if d.CAC.String() != NotCalculable || d.Payback.String() != NotCalculable {
		t.Fatalf("undefined values must render as %q", NotCalculable)
	}
}

func TestProjectUnknownChannelsOnlyYieldsUndefinedCAC(t *testing.T) {
	s := saasScenario()
	s.ChannelsSelected = []string{"telegraph"}
	d := Project(s, catalog.Default())
	assertFinite(t, d)
	if d.CAC.Defined {
		t.Fatalf("expected undefined cac, got %+v", d.CAC)
	}
	if d.Payback.State != PaybackBeyondHorizon {
		t.Fatalf("spend without revenue never pays back, got %+v", d.Payback)
	}
}

func TestProjectComplexityExtremesAreFinite(t *testing.T) {
	cat := catalog.Default()
	for _, industry := range cat.IndustryKeys() {
		for _, complexity := range []float64{0, 1} {
			for _, budget := range []float64{0, 1, 5000, scenario.MaxBudgetMonthly} {
				s := scenario.ScenarioInput{
					BudgetMonthly:    budget,
					Industry:         industry,
					CompanySizeTier:  catalog.TierStartup,
					MarketComplexity: complexity,
					ChannelsSelected: cat.ChannelKeys(),
					TimeframeMonths:  36,
				}
				d := Project(s, cat)
				assertFinite(t, d)
				if budget > 0 && !d.CAC.Defined {
					t.Fatalf("%s c=%v b=%v: expected defined cac", industry, complexity, budget)
				}
			}
		}
	}
}

func TestComplexityReducesLeadsAndDelaysRevenue(t *testing.T) {
	cat := catalog.Default()
	low := saasScenario()
	low.MarketComplexity = 0
	high := saasScenario()
	high.MarketComplexity = 1
	dl := Project(low, cat)
	dh := Project(high, cat)
	if !(dh.ProjectedLeadsPerMonth < dl.ProjectedLeadsPerMonth) {
		t.Fatalf("higher complexity should reduce leads: %v vs %v", dh.ProjectedLeadsPerMonth, dl.ProjectedLeadsPerMonth)
	}
	if !(dh.TimeToRevenueMonths > dl.TimeToRevenueMonths) {
		t.Fatalf("higher complexity should delay revenue: %v vs %v", dh.TimeToRevenueMonths, dl.TimeToRevenueMonths)
	}
	if diff(dh.ProjectedLeadsPerMonth, dl.ProjectedLeadsPerMonth*(1-cat.ComplexityLeadDampening)) > 1e-9 {
		t.Fatal("lead dampening is not linear in complexity")
	}
}

func TestLossScenarioHasNegativeROI(t *testing.T) {
	s := scenario.ScenarioInput{
		BudgetMonthly:    3000,
		Industry:         "ecommerce",
		CompanySizeTier:  catalog.TierStartup,
		MarketComplexity: 1,
		ChannelsSelected: []string{"email"},
		TimeframeMonths:  12,
	}
	d := Project(s, catalog.Default())
	if !d.ROIPercent.Defined || diff(d.ROIPercent.Value, -25.448359375) > 1e-6 {
		t.Fatalf("expected roi near -25.45, got %+v", d.ROIPercent)
	}
}

func TestLeadsMonotoneInBudget(t *testing.T) {
	cat := catalog.Default()
	s := saasScenario()
	prev := -1.0
	for budget := 0.0; budget <= 50000; budget += 137.5 {
		s.BudgetMonthly = budget
		leads := Project(s, cat).ProjectedLeadsPerMonth
		if leads < prev {
			t.Fatalf("leads fell from %v to %v at budget %v", prev, leads, budget)
		}
		prev = leads
	}
}

func TestMetricJSON(t *testing.T) {
	data, err := json.Marshal(UndefinedMetric(ReasonNoLeads))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"value":null,"defined":false,"reason":"no projected leads"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var back Metric
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Defined || back.Reason != ReasonNoLeads {
		t.Fatalf("unexpected metric %+v", back)
	}

	data, err = json.Marshal(DefinedMetric(12.5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":12.5`) {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestDefinedMetricRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		m := DefinedMetric(v)
		if m.Defined || m.Reason != ReasonNonFinite {
			t.Fatalf("expected undefined for %v, got %+v", v, m)
		}
	}
	if got := DefinedMetric(3).Or(-1); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := UndefinedMetric("x").Or(-1); got != -1 {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestPaybackString(t *testing.T) {
	cases := map[Payback]string{
		{State: PaybackReached, Months: 1}:  "1 month",
		{State: PaybackReached, Months: 25}: "25 months",
		{State: PaybackBeyondHorizon}:       "beyond horizon",
		{State: PaybackUndefined}:           NotCalculable,
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("%+v: expected %q, got %q", p, want, got)
		}
	}
}
