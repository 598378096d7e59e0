package grading

import (
	"fmt"
	"strings"
)

// ComponentType identifies an assessment category that carries weight toward a course score.
type ComponentType string

const (
	// ComponentExam covers partial exams.
	ComponentExam ComponentType = "PARCIAL"
	// ComponentAssignment covers homework and assignments.
	ComponentAssignment ComponentType = "ASIGNACION"
	// ComponentPortfolio covers the course portfolio.
	ComponentPortfolio ComponentType = "PORTAFOLIO"
	// ComponentFinal covers the final (semester) exam.
	ComponentFinal ComponentType = "SEMESTRAL"
	// ComponentAttendance covers attendance.
	ComponentAttendance ComponentType = "ASISTENCIA"
)

// canonical display and iteration order.
var componentOrder = []ComponentType{
	ComponentExam,
	ComponentAssignment,
	ComponentPortfolio,
	ComponentFinal,
	ComponentAttendance,
}

var maxExpectedCount = map[ComponentType]int{
	ComponentExam:       5,
	ComponentAssignment: 30,
}

const defaultMaxExpectedCount = 50

// AllComponents returns every known component type in canonical order.
func AllComponents() []ComponentType {
	out := make([]ComponentType, len(componentOrder))
	copy(out, componentOrder)
	return out
}

// Known reports whether the component type belongs to the closed set.
func (c ComponentType) Known() bool {
	return rank(c) >= 0
}

// MaxExpectedCount is the upper bound for the number of graded instances of the component.
func (c ComponentType) MaxExpectedCount() int {
	if max, ok := maxExpectedCount[c]; ok {
		return max
	}
	return defaultMaxExpectedCount
}

func (c ComponentType) String() string {
	return string(c)
}

// ParseComponentType normalises raw input ("parcial", " Parcial ") into a known component type.
func ParseComponentType(raw string) (ComponentType, error) {
	c := ComponentType(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Known() {
		return "", fmt.Errorf("unknown component type %q", raw)
	}
	return c, nil
}

// Catalog is the set of component types enabled for a deployment.
type Catalog struct {
	enabled map[ComponentType]struct{}
}

// NewCatalog builds a catalog from raw component names. An empty list enables every known type.
func NewCatalog(names []string) (*Catalog, error) {
	cat := &Catalog{enabled: make(map[ComponentType]struct{})}
	if len(names) == 0 {
		for _, c := range componentOrder {
			cat.enabled[c] = struct{}{}
		}
		return cat, nil
	}
	for _, name := range names {
		c, err := ParseComponentType(name)
		if err != nil {
			return nil, err
		}
		cat.enabled[c] = struct{}{}
	}
	return cat, nil
}

// Allows reports whether the component type is enabled.
func (c *Catalog) Allows(t ComponentType) bool {
	if c == nil {
		return t.Known()
	}
	_, ok := c.enabled[t]
	return ok
}

// Parse resolves raw input to an enabled component type.
func (c *Catalog) Parse(raw string) (ComponentType, error) {
	t, err := ParseComponentType(raw)
	if err != nil {
		return "", err
	}
	if !c.Allows(t) {
		return "", fmt.Errorf("component type %s is not enabled", t)
	}
	return t, nil
}

// Components lists the enabled component types in canonical order.
func (c *Catalog) Components() []ComponentType {
	out := make([]ComponentType, 0, len(componentOrder))
	for _, t := range componentOrder {
		if c.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

func rank(c ComponentType) int {
	for i, t := range componentOrder {
		if t == c {
			return i
		}
	}
	return -1
}
