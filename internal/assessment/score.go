package assessment

import (
	"math"
	"sort"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
)

const MaxRecommendations = 5

type ReadinessLevel string

const (
	LevelEarlyStage  ReadinessLevel = "early_stage"
	LevelDeveloping  ReadinessLevel = "developing"
	LevelNearlyReady ReadinessLevel = "nearly_ready"
	LevelLaunchReady ReadinessLevel = "launch_ready"
)

type CategoryScore struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Deficit   float64 `json:"deficit"`
}

type AssessmentResult struct {
	Score           float64         `json:"score"`
	Level           ReadinessLevel  `json:"level"`
	Recommendations []string        `json:"recommendations"`
	Categories      []CategoryScore `json:"categories"`
	Answered        int             `json:"answered"`
	Required        int             `json:"required"`
	Missing         []string        `json:"missing"`
}

// Score turns quiz answers into a 0-100 readiness score. Unanswered
// questions and unrecognised answers contribute nothing; the result is
// always best effort and never an error. Questions are walked in catalog
// order so the map's iteration order cannot affect the result.
func Score(cat *catalog.Catalog, answers map[string]string) AssessmentResult {
	byCat := make(map[string]*CategoryScore, len(cat.Categories))
	cats := make([]CategoryScore, len(cat.Categories))
	for i, c := range cat.Categories {
		cats[i] = CategoryScore{Key: c.Key, Label: c.Label}
		byCat[c.Key] = &cats[i]
	}

	res := AssessmentResult{Missing: []string{}}
	total, possible := 0.0, 0.0
	for _, q := range cat.Questions {
		best := q.MaxPoints()
		possible += best
		cs := byCat[q.Category]
		if cs != nil {
			cs.MaxPoints += best
		}
		if q.Required {
			res.Required++
		}

		points, ok := answerPoints(q, answers)
		if !ok {
			if q.Required {
				res.Missing = append(res.Missing, q.Key)
			}
			continue
		}
		res.Answered++
		total += points
		if cs != nil {
			cs.Points += points
		}
	}

	if possible > 0 {
		res.Score = clamp(100*total/possible, 0, 100)
	}
	for i := range cats {
		if cats[i].MaxPoints > 0 {
			cats[i].Deficit = clamp(1-cats[i].Points/cats[i].MaxPoints, 0, 1)
		}
	}
	res.Categories = cats
	res.Level = levelFor(res.Score)
	res.Recommendations = recommend(cat, cats)
	return res
}

func answerPoints(q catalog.Question, answers map[string]string) (float64, bool) {
	v, ok := answers[q.Key]
	if !ok {
		return 0, false
	}
	w, ok := q.Options[v]
	if !ok {
		return 0, false
	}
	return w, true
}

// recommend takes one recommendation per lacking category per pass, biggest
// deficit first, until the cap is reached. Equal deficits fall back to the
// catalog priority.
func recommend(cat *catalog.Catalog, scores []CategoryScore) []string {
	type ranked struct {
		deficit  float64
		priority int
		key      string
		recs     []string
	}
	var order []ranked
	for _, cs := range scores {
		if cs.Deficit <= 0 {
			continue
		}
		c, _ := cat.Category(cs.Key)
		order = append(order, ranked{deficit: cs.Deficit, priority: c.Priority, key: c.Key, recs: c.Recommendations})
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].deficit != order[j].deficit {
			return order[i].deficit > order[j].deficit
		}
		if order[i].priority != order[j].priority {
			return order[i].priority < order[j].priority
		}
		return order[i].key < order[j].key
	})

	out := []string{}
	seen := map[string]bool{}
	for pass := 0; len(out) < MaxRecommendations; pass++ {
		added := false
		for _, r := range order {
			if pass >= len(r.recs) {
				continue
			}
			added = true
			rec := r.recs[pass]
			if seen[rec] {
				continue
			}
			seen[rec] = true
			out = append(out, rec)
			if len(out) == MaxRecommendations {
				break
			}
		}
		if !added {
			break
		}
	}
	return out
}

func levelFor(score float64) ReadinessLevel {
	switch {
	case score >= 80:
		return LevelLaunchReady
	case score >= 60:
		return LevelNearlyReady
	case score >= 35:
		return LevelDeveloping
	default:
		return LevelEarlyStage
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
