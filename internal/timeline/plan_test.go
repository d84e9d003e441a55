package timeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

func day(t *testing.T, plan TimelinePlan, key string) (int, int) {
	t.Helper()
	m, ok := plan.Milestone(key)
	if !ok {
		t.Fatalf("milestone %s missing", key)
	}
	return plan.DayOffset(m.Start), plan.DayOffset(m.End)
}

func TestPlanParallelPhaseDoesNotExtendCriticalPath(t *testing.T) {
	launch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	plan, err := Plan(launch, []PhaseDuration{
		{Key: "build", Days: 30},
		{Key: "promo", Days: 15, Parallel: true},
		{Key: "launch", Days: 20},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if s, e := day(t, plan, "build"); s != 0 || e != 30 {
		t.Fatalf("build: %d-%d", s, e)
	}
	if s, e := day(t, plan, "promo"); s != 0 || e != 15 {
		t.Fatalf("promo should start with build: %d-%d", s, e)
	}
	if s, e := day(t, plan, "launch"); s != 30 || e != 50 {
		t.Fatalf("launch should start when build ends: %d-%d", s, e)
	}
	if plan.End != time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected end %s", plan.End)
	}
}

func TestPlanLongParallelPhaseExtendsCriticalPath(t *testing.T) {
	plan, err := Plan(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), []PhaseDuration{
		{Key: "a", Days: 10},
		{Key: "b", Days: 25, Parallel: true},
		{Key: "c", Days: 5},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if s, _ := day(t, plan, "c"); s != 25 {
		t.Fatalf("c should wait for the longer parallel phase, started at %d", s)
	}
}

func TestPlanTruncatesLaunchToDate(t *testing.T) {
	loc := time.FixedZone("x", 5*3600)
	plan, err := Plan(time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC).In(loc), []PhaseDuration{{Key: "a", Days: 1}})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.LaunchStart != time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected launch %s", plan.LaunchStart)
	}
}

func TestPlanZeroDayPhase(t *testing.T) {
	plan, err := Plan(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), []PhaseDuration{
		{Key: "kickoff", Days: 0},
		{Key: "work", Days: 3},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	m := plan.Milestones[0]
	if !m.End.Equal(m.Start) {
		t.Fatalf("zero-day phase should end when it starts: %+v", m)
	}
}

func TestPlanRejectsInvalidPhases(t *testing.T) {
	launch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		phases []PhaseDuration
		reason string
	}{
		{"negative days", []PhaseDuration{{Key: "a", Days: -1}}, "duration"},
		{"empty key", []PhaseDuration{{Key: " ", Days: 1}}, "key required"},
		{"duplicate", []PhaseDuration{{Key: "a", Days: 1}, {Key: "a", Days: 2}}, "duplicate"},
		{"unknown dependency", []PhaseDuration{{Key: "a", Days: 1, DependsOn: []string{"zz"}}}, "must come earlier"},
		{"forward dependency", []PhaseDuration{{Key: "a", Days: 1, DependsOn: []string{"b"}}, {Key: "b", Days: 1}}, "must come earlier"},
		{"parallel before dependency", []PhaseDuration{
			{Key: "a", Days: 10},
			{Key: "b", Days: 5, Parallel: true, DependsOn: []string{"a"}},
		}, "parallel phase"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(launch, tc.phases)
			var rej *PlanRejected
			if !errors.As(err, &rej) {
				t.Fatalf("expected PlanRejected, got %v", err)
			}
			if rej.Op != "plan" || !strings.Contains(rej.Reason, tc.reason) {
				t.Fatalf("unexpected rejection %+v", rej)
			}
		})
	}
}

func TestPlanSequentialStartsNonDecreasing(t *testing.T) {
	cat := catalog.Default()
	for _, c := range []float64{0, 0.25, 0.5, 1} {
		s := scenario.FromDefaults(cat.Defaults)
		s.MarketComplexity = c
		plan, err := Plan(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), PhasesFromScenario(cat, s))
		if err != nil {
			t.Fatalf("complexity %v: %v", c, err)
		}
		var last time.Time
		for _, m := range plan.Milestones {
			if m.End.Before(m.Start) {
				t.Fatalf("%s ends before it starts", m.Key)
			}
			if m.Parallel {
				continue
			}
			if m.Start.Before(last) {
				t.Fatalf("complexity %v: %s starts before previous sequential phase", c, m.Key)
			}
			last = m.Start
		}
	}
}

func TestPhasesFromScenarioScalesWithComplexity(t *testing.T) {
	cat := catalog.Default()
	s := scenario.FromDefaults(cat.Defaults)
	s.MarketComplexity = 0.5
	phases := PhasesFromScenario(cat, s)
	want := map[string]int{
		"market_research":  28,
		"positioning":      19,
		"content_creation": 21,
		"channel_setup":    14,
		"beta_launch":      19,
		"public_launch":    7,
		"optimization":     30,
	}
	for _, p := range phases {
		if p.Days != want[p.Key] {
			t.Fatalf("%s: expected %d days, got %d", p.Key, want[p.Key], p.Days)
		}
	}

	s.MarketComplexity = 0
	for i, p := range PhasesFromScenario(cat, s) {
		if p.Days != cat.Phases[i].BaseDays {
			t.Fatalf("%s: expected base days at zero complexity, got %d", p.Key, p.Days)
		}
	}
}

func TestDefaultPhaseLayout(t *testing.T) {
	cat := catalog.Default()
	s := scenario.FromDefaults(cat.Defaults)
	plan, err := Plan(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), PhasesFromScenario(cat, s))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := map[string][2]int{
		"market_research":  {0, 28},
		"positioning":      {28, 47},
		"content_creation": {28, 49},
		"channel_setup":    {49, 63},
		"beta_launch":      {63, 82},
		"public_launch":    {82, 89},
		"optimization":     {89, 119},
	}
	for key, w := range want {
		if s, e := day(t, plan, key); s != w[0] || e != w[1] {
			t.Fatalf("%s: expected %v, got %d-%d", key, w, s, e)
		}
	}
}

func TestPlanJSONUsesDates(t *testing.T) {
	plan, err := Plan(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), []PhaseDuration{{Key: "a", Label: "Alpha", Days: 30}})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"launch_start":"2025-01-01"`, `"end":"2025-01-31"`, `"start":"2025-01-01"`, `"label":"Alpha"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}

	var decoded TimelinePlan
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.End.Equal(plan.End) || len(decoded.Milestones) != 1 {
		t.Fatalf("unexpected decoded plan %+v", decoded)
	}
	if m := decoded.Milestones[0]; m.Label != "Alpha" || m.Days != 30 || !m.End.Equal(plan.Milestones[0].End) {
		t.Fatalf("unexpected decoded milestone %+v", m)
	}
	if err := json.Unmarshal([]byte(`{"launch_start":"soon"}`), &decoded); err == nil {
		t.Fatal("expected error for bad launch date")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-07-04 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected date %s", got)
	}
	if _, err := ParseDate("07/04/2025"); err == nil {
		t.Fatal("expected error for bad layout")
	}
}
