package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// PhaseDuration is one step of a launch. A parallel phase starts with its
// predecessor instead of after the work so far.
type PhaseDuration struct {
	Key       string   `json:"key"`
	Label     string   `json:"label,omitempty"`
	Days      int      `json:"days"`
	Parallel  bool     `json:"parallel"`
	DependsOn []string `json:"depends_on,omitempty"`
}

type Milestone struct {
	Key      string
	Label    string
	Start    time.Time
	End      time.Time
	Days     int
	Parallel bool
	Pinned   bool
}

type TimelinePlan struct {
	LaunchStart time.Time
	Milestones  []Milestone
	End         time.Time
}

// PlanRejected reports an edit or input that would break phase ordering.
// The planner keeps its previous plan when it returns one.
type PlanRejected struct {
	Op     string `json:"op"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

func (e *PlanRejected) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("timeline %s rejected: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("timeline %s rejected for %s: %s", e.Op, e.Key, e.Reason)
}

// Plan lays phases out from launchStart. Non-parallel phases start when every
// earlier phase has ended; parallel phases start with their predecessor.
func Plan(launchStart time.Time, phases []PhaseDuration) (TimelinePlan, error) {
	return compute("plan", launchStart, phases, nil)
}

func compute(op string, launchStart time.Time, phases []PhaseDuration, pins map[string]time.Time) (TimelinePlan, error) {
	launch := dateOf(launchStart)
	plan := TimelinePlan{LaunchStart: launch, End: launch, Milestones: make([]Milestone, 0, len(phases))}

	ends := make(map[string]time.Time, len(phases))
	criticalEnd := launch
	prevStart := launch
	for _, p := range phases {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return TimelinePlan{}, &PlanRejected{Op: op, Reason: "phase key required"}
		}
		if _, dup := ends[key]; dup {
			return TimelinePlan{}, &PlanRejected{Op: op, Key: key, Reason: "duplicate phase"}
		}
		if p.Days < 0 {
			return TimelinePlan{}, &PlanRejected{Op: op, Key: key, Reason: "duration must be >= 0 days"}
		}

		depEnd := launch
		for _, dep := range p.DependsOn {
			end, ok := ends[dep]
			if !ok {
				return TimelinePlan{}, &PlanRejected{Op: op, Key: key, Reason: fmt.Sprintf("dependency %s must come earlier", dep)}
			}
			if end.After(depEnd) {
				depEnd = end
			}
		}

		start := criticalEnd
		if p.Parallel {
			start = prevStart
		}
		if start.Before(depEnd) {
			if p.Parallel {
				return TimelinePlan{}, &PlanRejected{Op: op, Key: key, Reason: "parallel phase would start before its dependency ends"}
			}
			start = depEnd
		}

		pinned := false
		if at, ok := pins[key]; ok {
			at = dateOf(at)
			earliest := start
			if p.Parallel {
				earliest = depEnd
			}
			if at.Before(earliest) {
				return TimelinePlan{}, &PlanRejected{Op: op, Key: key, Reason: fmt.Sprintf("cannot start before %s", earliest.Format(dateLayout))}
			}
			start = at
			pinned = true
		}

		end := start.AddDate(0, 0, p.Days)
		plan.Milestones = append(plan.Milestones, Milestone{
			Key:      key,
			Label:    p.Label,
			Start:    start,
			End:      end,
			Days:     p.Days,
			Parallel: p.Parallel,
			Pinned:   pinned,
		})
		ends[key] = end
		if end.After(criticalEnd) {
			criticalEnd = end
		}
		prevStart = start
	}
	plan.End = criticalEnd
	return plan, nil
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Clone returns a deep copy.
func (p TimelinePlan) Clone() TimelinePlan {
	cp := p
	cp.Milestones = append([]Milestone(nil), p.Milestones...)
	return cp
}

// Milestone looks up a phase by key.
func (p TimelinePlan) Milestone(key string) (Milestone, bool) {
	for _, m := range p.Milestones {
		if m.Key == key {
			return m, true
		}
	}
	return Milestone{}, false
}

// DayOffset is the number of days from launch to t.
func (p TimelinePlan) DayOffset(t time.Time) int {
	return int(dateOf(t).Sub(p.LaunchStart).Hours() / 24)
}

type milestoneJSON struct {
	Key      string `json:"key"`
	Label    string `json:"label,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Days     int    `json:"days"`
	Parallel bool   `json:"parallel"`
	Pinned   bool   `json:"pinned"`
}

func (m Milestone) MarshalJSON() ([]byte, error) {
	return json.Marshal(milestoneJSON{
		Key:      m.Key,
		Label:    m.Label,
		Start:    m.Start.Format(dateLayout),
		End:      m.End.Format(dateLayout),
		Days:     m.Days,
		Parallel: m.Parallel,
		Pinned:   m.Pinned,
	})
}

func (p TimelinePlan) MarshalJSON() ([]byte, error) {
	milestones := p.Milestones
	if milestones == nil {
		milestones = []Milestone{}
	}
	return json.Marshal(struct {
		LaunchStart string      `json:"launch_start"`
		End         string      `json:"end"`
		Milestones  []Milestone `json:"milestones"`
	}{
		LaunchStart: p.LaunchStart.Format(dateLayout),
		End:         p.End.Format(dateLayout),
		Milestones:  milestones,
	})
}

func (m *Milestone) UnmarshalJSON(data []byte) error {
	var raw milestoneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.Start)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.End)
	if err != nil {
		return err
	}
	*m = Milestone{
		Key:      raw.Key,
		Label:    raw.Label,
		Start:    start,
		End:      end,
		Days:     raw.Days,
		Parallel: raw.Parallel,
		Pinned:   raw.Pinned,
	}
	return nil
}

func (p *TimelinePlan) UnmarshalJSON(data []byte) error {
	var raw struct {
		LaunchStart string      `json:"launch_start"`
		End         string      `json:"end"`
		Milestones  []Milestone `json:"milestones"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	launch, err := ParseDate(raw.LaunchStart)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.End)
	if err != nil {
		return err
	}
	*p = TimelinePlan{LaunchStart: launch, End: end, Milestones: raw.Milestones}
	return nil
}

// ParseDate reads a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
