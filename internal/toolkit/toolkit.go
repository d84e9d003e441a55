package toolkit

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/assessment"
	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/pricing"
	"github.com/joelkehle/gtm-toolkit/internal/projection"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
)

var ErrClosed = errors.New("toolkit closed")

type Config struct {
	// LaunchStart defaults to the Monday after Clock().
	LaunchStart time.Time
	Clock       func() time.Time
}

// Outputs is everything a view renders for one scenario revision. Views
// receive copies computed once per pass, never their own recomputation.
type Outputs struct {
	Revision     uint64                    `json:"revision"`
	Scenario     scenario.ScenarioInput    `json:"scenario"`
	Metrics      projection.DerivedMetrics `json:"metrics"`
	Pricing      pricing.PricingEstimate   `json:"pricing"`
	PricingError string                    `json:"pricing_error,omitempty"`
	Plan         timeline.TimelinePlan     `json:"plan"`
	Sensitivity  []projection.Driver       `json:"sensitivity"`
}

func (o Outputs) Clone() Outputs {
	cp := o
	cp.Scenario = o.Scenario.Clone()
	cp.Metrics.Series = append([]projection.MonthPoint(nil), o.Metrics.Series...)
	cp.Pricing.Outcomes = append([]string(nil), o.Pricing.Outcomes...)
	cp.Plan = o.Plan.Clone()
	cp.Sensitivity = append([]projection.Driver(nil), o.Sensitivity...)
	return cp
}

type Snapshot struct {
	Outputs     Outputs
	Assessment  *assessment.AssessmentResult
	GeneratedAt time.Time
}

type view struct {
	fn     func(Outputs)
	active bool
}

// Toolkit wires the scenario store to the engines and fans the results out
// to subscribed views.
type Toolkit struct {
	cat   *catalog.Catalog
	store *scenario.Store
	clock func() time.Time

	mu          sync.Mutex
	planner     *timeline.Planner
	outputs     Outputs
	seen        uint64
	assessment  *assessment.AssessmentResult
	views       []*view
	pending     []Outputs
	dispatching bool
	closed      bool
	unsubscribe func()
}

func New(cat *catalog.Catalog, cfg Config) (*Toolkit, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.LaunchStart.IsZero() {
		cfg.LaunchStart = NextMonday(cfg.Clock())
	}

	store := scenario.NewStore(cat)
	s := store.Get()
	planner, err := timeline.NewPlanner(cfg.LaunchStart, timeline.PhasesFromScenario(cat, s))
	if err != nil {
		return nil, err
	}
	t := &Toolkit{
		cat:     cat,
		store:   store,
		clock:   cfg.Clock,
		planner: planner,
	}
	t.outputs = t.compute(0, s, planner.Plan())
	t.unsubscribe = store.Subscribe(t.onScenario)
	return t, nil
}

// NextMonday returns the first Monday strictly after now, as a UTC date.
func NextMonday(now time.Time) time.Time {
	u := now.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(d.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, offset)
}

func (t *Toolkit) Catalog() *catalog.Catalog {
	return t.cat
}

func (t *Toolkit) Scenario() scenario.ScenarioInput {
	return t.store.Get()
}

func (t *Toolkit) Outputs() Outputs {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outputs.Clone()
}

func (t *Toolkit) UpdateScenario(p scenario.Partial) (Outputs, error) {
	if t.isClosed() {
		return Outputs{}, ErrClosed
	}
	if _, err := t.store.Update(p); err != nil {
		return Outputs{}, err
	}
	return t.Outputs(), nil
}

func (t *Toolkit) Subscribe(fn func(Outputs)) func() {
	v := &view{fn: fn, active: true}
	t.mu.Lock()
	if !t.closed {
		t.views = append(t.views, v)
	}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !v.active {
			return
		}
		v.active = false
		for i, other := range t.views {
			if other == v {
				t.views = append(t.views[:i:i], t.views[i+1:]...)
				break
			}
		}
	}
}

func (t *Toolkit) Views() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.views)
}

// Assess scores answers and keeps the result for reports.
func (t *Toolkit) Assess(answers map[string]string) assessment.AssessmentResult {
	res := assessment.Score(t.cat, answers)
	t.mu.Lock()
	kept := res
	t.assessment = &kept
	t.mu.Unlock()
	return res
}

func (t *Toolkit) Assessment() (assessment.AssessmentResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.assessment == nil {
		return assessment.AssessmentResult{}, false
	}
	return *t.assessment, true
}

func (t *Toolkit) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{Outputs: t.outputs.Clone(), GeneratedAt: t.clock().UTC()}
	if t.assessment != nil {
		a := *t.assessment
		snap.Assessment = &a
	}
	return snap
}

// MovePhase drags a phase to a new position. A *timeline.PlanRejected
// leaves the plan and every view untouched.
func (t *Toolkit) MovePhase(key string, to int) (timeline.TimelinePlan, error) {
	return t.editPlan(func(p *timeline.Planner) (timeline.TimelinePlan, error) {
		return p.Move(key, to)
	})
}

func (t *Toolkit) ShiftPhase(key string, start time.Time) (timeline.TimelinePlan, error) {
	return t.editPlan(func(p *timeline.Planner) (timeline.TimelinePlan, error) {
		return p.Shift(key, start)
	})
}

func (t *Toolkit) UnpinPhase(key string) (timeline.TimelinePlan, error) {
	return t.editPlan(func(p *timeline.Planner) (timeline.TimelinePlan, error) {
		return p.Unpin(key)
	})
}

func (t *Toolkit) SetLaunchStart(start time.Time) (timeline.TimelinePlan, error) {
	return t.editPlan(func(p *timeline.Planner) (timeline.TimelinePlan, error) {
		return p.SetLaunchStart(start)
	})
}

func (t *Toolkit) editPlan(edit func(*timeline.Planner) (timeline.TimelinePlan, error)) (timeline.TimelinePlan, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return timeline.TimelinePlan{}, ErrClosed
	}
	plan, err := edit(t.planner)
	if err != nil {
		t.mu.Unlock()
		return plan, err
	}
	next := t.outputs.Clone()
	next.Plan = plan.Clone()
	t.outputs = next
	start := t.enqueueLocked(next)
	t.mu.Unlock()

	if start {
		t.drain()
	}
	return plan, nil
}

func (t *Toolkit) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for _, v := range t.views {
		v.active = false
	}
	t.views = nil
	t.pending = nil
	unsubscribe := t.unsubscribe
	t.mu.Unlock()

	unsubscribe()
}

func (t *Toolkit) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// onScenario runs once per store notification, in commit order.
func (t *Toolkit) onScenario(s scenario.ScenarioInput) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.seen++
	phases := timeline.PhasesFromScenario(t.cat, s)
	plan, err := t.planner.Resize(phases)
	if err != nil {
		log.Printf("toolkit timeline resize rejected, rebuilding revision=%d err=%v", t.seen, err)
		plan, err = t.planner.Replace(phases)
		if err != nil {
			log.Printf("toolkit timeline rebuild rejected revision=%d err=%v", t.seen, err)
		}
	}
	next := t.compute(t.seen, s, plan)
	t.outputs = next
	start := t.enqueueLocked(next)
	t.mu.Unlock()

	if start {
		t.drain()
	}
}

func (t *Toolkit) compute(rev uint64, s scenario.ScenarioInput, plan timeline.TimelinePlan) Outputs {
	out := Outputs{
		Revision:    rev,
		Scenario:    s.Clone(),
		Metrics:     projection.Project(s, t.cat),
		Plan:        plan,
		Sensitivity: projection.Sensitivity(s, t.cat),
	}
	est, err := pricing.EstimateScenario(t.cat, s)
	if err != nil {
		out.PricingError = err.Error()
	} else {
		out.Pricing = est
	}
	return out
}

func (t *Toolkit) enqueueLocked(o Outputs) bool {
	t.pending = append(t.pending, o)
	if t.dispatching {
		return false
	}
	t.dispatching = true
	return true
}

func (t *Toolkit) drain() {
	finished := false
	defer func() {
		if !finished {
			t.mu.Lock()
			t.dispatching = false
			t.mu.Unlock()
		}
	}()
	for {
		t.mu.Lock()
		if len(t.pending) == 0 {
			t.dispatching = false
			finished = true
			t.mu.Unlock()
			return
		}
		out := t.pending[0]
		t.pending = t.pending[1:]
		views := append([]*view(nil), t.views...)
		t.mu.Unlock()

		for _, v := range views {
			t.mu.Lock()
			active := v.active
			t.mu.Unlock()
			if active {
				v.fn(out.Clone())
			}
		}
	}
}
