package projection

import (
	"encoding/json"
	"fmt"
	"math"
)

const NotCalculable = "not yet calculable"

const (
	ReasonNoLeads   = "no projected leads"
	ReasonZeroCAC   = "acquisition cost is zero"
	ReasonNoSpend   = "no spend to recover"
	ReasonNonFinite = "result is not a finite number"
)

// Metric is a calculated value that may be undefined. Undefined metrics carry
// a reason and never hold NaN or Inf.
type Metric struct {
	Value   float64
	Defined bool
	Reason  string
}

// DefinedMetric wraps v. A non-finite v yields an undefined metric.
func DefinedMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UndefinedMetric(ReasonNonFinite)
	}
	return Metric{Value: v, Defined: true}
}

func UndefinedMetric(reason string) Metric {
	return Metric{Reason: reason}
}

// Or returns the value, or fallback when undefined.
func (m Metric) Or(fallback float64) float64 {
	if !m.Defined {
		return fallback
	}
	return m.Value
}

func (m Metric) String() string {
	if !m.Defined {
		return NotCalculable
	}
	return fmt.Sprintf("%.2f", m.Value)
}

type metricJSON struct {
	Value   *float64 `json:"value"`
	Defined bool     `json:"defined"`
	Reason  string   `json:"reason,omitempty"`
}

func (m Metric) MarshalJSON() ([]byte, error) {
	out := metricJSON{Defined: m.Defined, Reason: m.Reason}
	if m.Defined {
		v := m.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	var in metricJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Defined && in.Value != nil {
		*m = DefinedMetric(*in.Value)
		return nil
	}
	reason := in.Reason
	if reason == "" {
		reason = ReasonNonFinite
	}
	*m = UndefinedMetric(reason)
	return nil
}

type PaybackState string

const (
	PaybackReached       PaybackState = "reached"
	PaybackBeyondHorizon PaybackState = "beyond_horizon"
	PaybackUndefined     PaybackState = "undefined"
)

// Payback is the month cumulative gross profit first covers cumulative
// spend. Breakeven after the timeframe is reported as beyond horizon and is
// never extrapolated.
type Payback struct {
	State  PaybackState `json:"state"`
	Months int          `json:"months,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

func (p Payback) String() string {
	switch p.State {
	case PaybackReached:
		if p.Months == 1 {
			return "1 month"
		}
		return fmt.Sprintf("%d months", p.Months)
	case PaybackBeyondHorizon:
		return "beyond horizon"
	default:
		return NotCalculable
	}
}
