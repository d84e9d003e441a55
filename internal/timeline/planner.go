package timeline

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Planner holds the current valid plan and applies drag edits to it. Every
// edit is recomputed in full; a rejected edit leaves the plan untouched.
type Planner struct {
	mu     sync.Mutex
	launch time.Time
	phases []PhaseDuration
	pins   map[string]time.Time
	plan   TimelinePlan
}

func NewPlanner(launchStart time.Time, phases []PhaseDuration) (*Planner, error) {
	owned := clonePhases(phases)
	plan, err := compute("plan", launchStart, owned, nil)
	if err != nil {
		return nil, err
	}
	return &Planner{
		launch: dateOf(launchStart),
		phases: owned,
		pins:   map[string]time.Time{},
		plan:   plan,
	}, nil
}

// Plan returns a copy of the current plan.
func (p *Planner) Plan() TimelinePlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plan.Clone()
}

// Phases returns the phases in their current order.
func (p *Planner) Phases() []PhaseDuration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clonePhases(p.phases)
}

// Move drags the phase key to position to. On rejection the returned plan is
// the retained one and the error is a *PlanRejected.
func (p *Planner) Move(key string, to int) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	from := indexOf(p.phases, key)
	if from < 0 {
		return p.plan.Clone(), &PlanRejected{Op: "move", Key: key, Reason: "unknown phase"}
	}
	if to < 0 || to >= len(p.phases) {
		return p.plan.Clone(), &PlanRejected{Op: "move", Key: key, Reason: fmt.Sprintf("position %d out of range", to)}
	}
	next := clonePhases(p.phases)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]PhaseDuration{moved}, next[to:]...)...)
	return p.commitLocked("move", p.launch, next, p.pins)
}

// Shift pins the phase key to start on the given date.
func (p *Planner) Shift(key string, start time.Time) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if indexOf(p.phases, key) < 0 {
		return p.plan.Clone(), &PlanRejected{Op: "shift", Key: key, Reason: "unknown phase"}
	}
	pins := clonePins(p.pins)
	pins[key] = dateOf(start)
	return p.commitLocked("shift", p.launch, p.phases, pins)
}

// Unpin returns the phase key to its computed start.
func (p *Planner) Unpin(key string) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pins[key]; !ok {
		return p.plan.Clone(), nil
	}
	pins := clonePins(p.pins)
	delete(pins, key)
	return p.commitLocked("unpin", p.launch, p.phases, pins)
}

// SetLaunchStart moves the whole plan. Pins that would land before their
// earliest allowed start reject the change.
func (p *Planner) SetLaunchStart(start time.Time) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitLocked("launch", dateOf(start), p.phases, p.pins)
}

// Replace swaps in a new phase list and drops every pin.
func (p *Planner) Replace(phases []PhaseDuration) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitLocked("replace", p.launch, clonePhases(phases), map[string]time.Time{})
}

// Resize takes new durations for the same phases while keeping the current
// order and pins. It is rejected when the phase keys differ or a pin would
// land before its earliest start.
func (p *Planner) Resize(phases []PhaseDuration) (TimelinePlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	days := make(map[string]int, len(phases))
	for _, ph := range phases {
		days[ph.Key] = ph.Days
	}
	if len(days) != len(p.phases) {
		return p.plan.Clone(), &PlanRejected{Op: "resize", Reason: "phase set changed"}
	}
	next := clonePhases(p.phases)
	for i := range next {
		d, ok := days[next[i].Key]
		if !ok {
			return p.plan.Clone(), &PlanRejected{Op: "resize", Key: next[i].Key, Reason: "phase set changed"}
		}
		next[i].Days = d
	}
	return p.commitLocked("resize", p.launch, next, p.pins)
}

func (p *Planner) commitLocked(op string, launch time.Time, phases []PhaseDuration, pins map[string]time.Time) (TimelinePlan, error) {
	plan, err := compute(op, launch, phases, pins)
	if err != nil {
		var rej *PlanRejected
		if !errors.As(err, &rej) {
			rej = &PlanRejected{Op: op, Reason: err.Error()}
		}
		return p.plan.Clone(), rej
	}
	p.launch = launch
	p.phases = phases
	p.pins = clonePins(pins)
	p.plan = plan
	return plan.Clone(), nil
}

func indexOf(phases []PhaseDuration, key string) int {
	for i, ph := range phases {
		if ph.Key == key {
			return i
		}
	}
	return -1
}

func clonePhases(in []PhaseDuration) []PhaseDuration {
	out := make([]PhaseDuration, len(in))
	for i, ph := range in {
		ph.DependsOn = append([]string(nil), ph.DependsOn...)
		out[i] = ph
	}
	return out
}

func clonePins(in map[string]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
