package grading

import "math"

// Band is the qualitative classification of a score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
	// BandNone marks a score with no contributing entries.
	BandNone Band = "none"
)

const (
	highThreshold   = 85
	mediumThreshold = 70
)

// Classify bands an already rounded score.
func Classify(score int) Band {
	switch {
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Round rounds half away from zero to the nearest integer.
func Round(v float64) int {
	return int(math.Round(v))
}

// Entry is a single recorded score for one component.
type Entry struct {
	Component ComponentType `json:"component"`
	Score     float64       `json:"score"`
}

// Score is an aggregated value. A nil Value means no data yet.
type Score struct {
	Value *int     `json:"value"`
	Raw   *float64 `json:"raw,omitempty"`
	Band  Band     `json:"band"`
}

// Defined reports whether the score has contributing entries.
func (s Score) Defined() bool {
	return s.Value != nil
}

// ComponentResult is the per-component portion of a summary.
type ComponentResult struct {
	Component     ComponentType `json:"component"`
	Weight        int           `json:"weight"`
	ExpectedCount int           `json:"expected_count,omitempty"`
	Count         int           `json:"count"`
	Average       Score         `json:"average"`
}

// CourseSummary is the derived view of a scheme and its recorded entries.
type CourseSummary struct {
	Components    []ComponentResult `json:"components"`
	Overall       Score             `json:"overall"`
	CoveredWeight int               `json:"covered_weight"`
	// Extras lists entries whose component is not part of the scheme. They never affect Overall.
	Extras []ComponentResult `json:"extras,omitempty"`
}

// Summarize aggregates entries against a validated scheme.
func Summarize(scheme Scheme, entries []Entry) (CourseSummary, error) {
	if !scheme.Valid() {
		return CourseSummary{}, ErrPreconditionViolation
	}

	sums := make(map[ComponentType]float64)
	counts := make(map[ComponentType]int)
	var extraOrder []ComponentType
	for _, e := range entries {
		if !scheme.Has(e.Component) && counts[e.Component] == 0 {
			extraOrder = append(extraOrder, e.Component)
		}
		sums[e.Component] += e.Score
		counts[e.Component]++
	}

	summary := CourseSummary{Components: make([]ComponentResult, 0, len(scheme.components))}
	var weighted float64
	for _, c := range scheme.components {
		result := ComponentResult{
			Component:     c.Type,
			Weight:        c.Weight,
			ExpectedCount: c.ExpectedCount,
			Count:         counts[c.Type],
			Average:       undefinedScore(),
		}
		if n := counts[c.Type]; n > 0 {
			mean := sums[c.Type] / float64(n)
			result.Average = newScore(mean)
			weighted += mean * float64(c.Weight)
			summary.CoveredWeight += c.Weight
		}
		summary.Components = append(summary.Components, result)
	}

	summary.Overall = undefinedScore()
	if summary.CoveredWeight > 0 {
		summary.Overall = newScore(weighted / float64(summary.CoveredWeight))
	}

	sortComponents(extraOrder)
	for _, t := range extraOrder {
		summary.Extras = append(summary.Extras, ComponentResult{
			Component: t,
			Count:     counts[t],
			Average:   newScore(sums[t] / float64(counts[t])),
		})
	}
	return summary, nil
}

func newScore(raw float64) Score {
	rounded := Round(raw)
	return Score{Value: &rounded, Raw: &raw, Band: Classify(rounded)}
}

func undefinedScore() Score {
	return Score{Band: BandNone}
}
