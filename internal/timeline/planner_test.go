package timeline

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

var testLaunch = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	cat := catalog.Default()
	p, err := NewPlanner(testLaunch, PhasesFromScenario(cat, scenario.FromDefaults(cat.Defaults)))
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	return p
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func assertRejectedUnchanged(t *testing.T, p *Planner, before TimelinePlan, got TimelinePlan, err error, op string) *PlanRejected {
	t.Helper()
	var rej *PlanRejected
	if !errors.As(err, &rej) {
		t.Fatalf("expected PlanRejected, got %v", err)
	}
	if rej.Op != op {
		t.Fatalf("expected op %q, got %q", op, rej.Op)
	}
	if mustJSON(t, p.Plan()) != mustJSON(t, before) {
		t.Fatal("plan changed after rejected edit")
	}
	if !reflect.DeepEqual(got, before) {
		t.Fatal("rejected edit should hand back the retained plan")
	}
	return rej
}

func TestNewPlannerRejectsInvalidPhases(t *testing.T) {
	_, err := NewPlanner(testLaunch, []PhaseDuration{{Key: "a", Days: -3}})
	var rej *PlanRejected
	if !errors.As(err, &rej) {
		t.Fatalf("expected PlanRejected, got %v", err)
	}
}

func TestPlannerOwnsItsPhases(t *testing.T) {
	phases := []PhaseDuration{{Key: "a", Days: 5}, {Key: "b", Days: 5, DependsOn: []string{"a"}}}
	p, err := NewPlanner(testLaunch, phases)
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	phases[1].DependsOn[0] = "zzz"
	phases[0].Days = 500
	if got := p.Phases(); got[0].Days != 5 || got[1].DependsOn[0] != "a" {
		t.Fatalf("planner aliased caller phases: %+v", got)
	}
	plan := p.Plan()
	plan.Milestones[0].Days = 99
	if p.Plan().Milestones[0].Days == 99 {
		t.Fatal("Plan returned shared milestones")
	}
}

func TestMoveValidReorder(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Move("optimization", 4)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if plan.Milestones[4].Key != "optimization" {
		t.Fatalf("expected optimization at index 4, got %s", plan.Milestones[4].Key)
	}
	if s, e := day(t, plan, "optimization"); s != 49+14 || e != 63+30 {
		t.Fatalf("optimization should follow channel setup: %d-%d", s, e)
	}
	if s, _ := day(t, plan, "beta_launch"); s != 93 {
		t.Fatalf("beta launch should follow optimization, got %d", s)
	}
	if !reflect.DeepEqual(p.Plan(), plan) {
		t.Fatal("planner did not keep the accepted plan")
	}
}

func TestMoveAheadOfDependencyRejected(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Move("channel_setup", 0)
	rej := assertRejectedUnchanged(t, p, before, got, err, "move")
	if rej.Key != "channel_setup" || !strings.Contains(rej.Reason, "positioning") {
		t.Fatalf("unexpected rejection %+v", rej)
	}
}

func TestMoveStrandingParallelPhaseRejected(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	// content_creation would then run alongside market_research, which it depends on.
	got, err := p.Move("positioning", 2)
	rej := assertRejectedUnchanged(t, p, before, got, err, "move")
	if rej.Key != "content_creation" {
		t.Fatalf("expected content_creation to be the violating phase, got %+v", rej)
	}
}

func TestMoveUnknownOrOutOfRange(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Move("nope", 0)
	assertRejectedUnchanged(t, p, before, got, err, "move")
	got, err = p.Move("optimization", 7)
	assertRejectedUnchanged(t, p, before, got, err, "move")
	got, err = p.Move("optimization", -1)
	assertRejectedUnchanged(t, p, before, got, err, "move")
}

func TestShiftPinsPhaseAndPushesSuccessors(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Shift("beta_launch", testLaunch.AddDate(0, 0, 70))
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	m, _ := plan.Milestone("beta_launch")
	if !m.Pinned {
		t.Fatal("shifted milestone should be pinned")
	}
	if s, e := day(t, plan, "beta_launch"); s != 70 || e != 89 {
		t.Fatalf("beta launch: %d-%d", s, e)
	}
	if s, _ := day(t, plan, "public_launch"); s != 89 {
		t.Fatalf("public launch should follow pinned beta, got %d", s)
	}

	plan, err = p.Unpin("beta_launch")
	if err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if s, _ := day(t, plan, "beta_launch"); s != 63 {
		t.Fatalf("unpinned beta should return to day 63, got %d", s)
	}
}

func TestShiftBeforeCriticalPathRejected(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Shift("channel_setup", testLaunch.AddDate(0, 0, 40))
	rej := assertRejectedUnchanged(t, p, before, got, err, "shift")
	if !strings.Contains(rej.Reason, "cannot start before") {
		t.Fatalf("unexpected reason %q", rej.Reason)
	}
}

func TestShiftParallelPhase(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Shift("content_creation", testLaunch.AddDate(0, 0, 10))
	assertRejectedUnchanged(t, p, before, got, err, "shift")

	plan, err := p.Shift("content_creation", testLaunch.AddDate(0, 0, 35))
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	if s, e := day(t, plan, "content_creation"); s != 35 || e != 56 {
		t.Fatalf("content creation: %d-%d", s, e)
	}
	if s, _ := day(t, plan, "channel_setup"); s != 56 {
		t.Fatalf("channel setup should wait for the later parallel phase, got %d", s)
	}
}

func TestShiftUnknownPhase(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Shift("nope", testLaunch)
	assertRejectedUnchanged(t, p, before, got, err, "shift")
}

func TestUnpinWithoutPinIsNoop(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	plan, err := p.Unpin("beta_launch")
	if err != nil || !reflect.DeepEqual(plan, before) {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestSetLaunchStartShiftsPlan(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.SetLaunchStart(testLaunch.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("set launch: %v", err)
	}
	if plan.Milestones[0].Start != testLaunch.AddDate(0, 1, 0) {
		t.Fatalf("unexpected first start %s", plan.Milestones[0].Start)
	}

	if _, err := p.Shift("public_launch", testLaunch.AddDate(0, 1, 90)); err != nil {
		t.Fatalf("shift: %v", err)
	}
	before := p.Plan()
	got, err := p.SetLaunchStart(testLaunch.AddDate(0, 6, 0))
	assertRejectedUnchanged(t, p, before, got, err, "launch")
}

func TestReplaceDropsPins(t *testing.T) {
	p := newTestPlanner(t)
	if _, err := p.Shift("optimization", testLaunch.AddDate(0, 0, 100)); err != nil {
		t.Fatalf("shift: %v", err)
	}
	plan, err := p.Replace([]PhaseDuration{{Key: "optimization", Days: 3}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if plan.Milestones[0].Pinned || plan.Milestones[0].Start != testLaunch {
		t.Fatalf("pins should be dropped on replace: %+v", plan.Milestones[0])
	}
}

func phasesAt(t *testing.T, complexity float64) []PhaseDuration {
	t.Helper()
	cat := catalog.Default()
	s := scenario.FromDefaults(cat.Defaults)
	s.MarketComplexity = complexity
	return PhasesFromScenario(cat, s)
}

func TestResizeKeepsOrderAndPins(t *testing.T) {
	p := newTestPlanner(t)
	if _, err := p.Move("optimization", 4); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := p.Shift("public_launch", testLaunch.AddDate(0, 0, 150)); err != nil {
		t.Fatalf("shift: %v", err)
	}

	plan, err := p.Resize(phasesAt(t, 0))
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if plan.Milestones[4].Key != "optimization" {
		t.Fatalf("resize should keep the manual order, got %s at 4", plan.Milestones[4].Key)
	}
	if m, _ := plan.Milestone("market_research"); m.Days != 21 {
		t.Fatalf("expected base duration at zero complexity, got %d", m.Days)
	}
	pub, _ := plan.Milestone("public_launch")
	if !pub.Pinned || pub.Start != testLaunch.AddDate(0, 0, 150) {
		t.Fatalf("resize should keep pins, got %+v", pub)
	}
}

func TestResizeRejections(t *testing.T) {
	p := newTestPlanner(t)
	before := p.Plan()
	got, err := p.Resize([]PhaseDuration{{Key: "market_research", Days: 3}})
	assertRejectedUnchanged(t, p, before, got, err, "resize")

	if _, err := p.Shift("beta_launch", testLaunch.AddDate(0, 0, 63)); err != nil {
		t.Fatalf("shift: %v", err)
	}
	before = p.Plan()
	got, err = p.Resize(phasesAt(t, 1))
	assertRejectedUnchanged(t, p, before, got, err, "resize")
}
