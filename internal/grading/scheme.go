package grading

import "sort"

const fullWeight = 100

// Component is one weighted entry of a grading scheme.
type Component struct {
	Type          ComponentType `json:"type"`
	Weight        int           `json:"weight"`
	ExpectedCount int           `json:"expected_count,omitempty"`
}

// Scheme is a validated, immutable set of component weights summing to 100.
// The zero value is not a valid scheme; build one with NewScheme.
type Scheme struct {
	components []Component
}

// Validate checks that every weight lies in [0, 100] and that the weights sum to exactly 100.
// Missing components count as zero.
func Validate(weights map[ComponentType]int) error {
	types := make([]ComponentType, 0, len(weights))
	for t := range weights {
		types = append(types, t)
	}
	sortComponents(types)

	sum := 0
	for _, t := range types {
		w := weights[t]
		if w < 0 || w > fullWeight {
			return &InvalidSchemeError{Reason: ReasonWeightOutOfRange, Component: t, Value: w}
		}
		sum += w
	}
	if sum != fullWeight {
		return &InvalidSchemeError{Reason: ReasonSumNotHundred, Sum: sum}
	}
	return nil
}

// NewScheme validates the components and returns an immutable scheme.
// Duplicate component types are merged by summing their weights before validation.
func NewScheme(components []Component) (Scheme, error) {
	weights := make(map[ComponentType]int, len(components))
	merged := make(map[ComponentType]Component, len(components))
	for _, c := range components {
		weights[c.Type] += c.Weight
		existing := merged[c.Type]
		existing.Type = c.Type
		existing.Weight += c.Weight
		if c.ExpectedCount > existing.ExpectedCount {
			existing.ExpectedCount = c.ExpectedCount
		}
		merged[c.Type] = existing
	}
	if err := Validate(weights); err != nil {
		return Scheme{}, err
	}

	out := make([]Component, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i].Type, out[j].Type) })
	return Scheme{components: out}, nil
}

// Valid reports whether the scheme was produced by NewScheme.
func (s Scheme) Valid() bool {
	return len(s.components) > 0
}

// Components returns a copy of the scheme's components in canonical order.
func (s Scheme) Components() []Component {
	out := make([]Component, len(s.components))
	copy(out, s.components)
	return out
}

// Weights returns the scheme as a component → weight map.
func (s Scheme) Weights() map[ComponentType]int {
	out := make(map[ComponentType]int, len(s.components))
	for _, c := range s.components {
		out[c.Type] = c.Weight
	}
	return out
}

// Has reports whether the component type is part of the scheme.
func (s Scheme) Has(t ComponentType) bool {
	for _, c := range s.components {
		if c.Type == t {
			return true
		}
	}
	return false
}

func sortComponents(types []ComponentType) {
	sort.SliceStable(types, func(i, j int) bool { return less(types[i], types[j]) })
}

// unknown types sort after known ones, alphabetically.
func less(a, b ComponentType) bool {
	ra, rb := rank(a), rank(b)
	switch {
	case ra >= 0 && rb >= 0:
		return ra < rb
	case ra >= 0:
		return true
	case rb >= 0:
		return false
	default:
		return a < b
	}
}
