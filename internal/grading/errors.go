package grading

import (
	"errors"
	"fmt"
)

// Reason tags why a candidate scheme was rejected.
type Reason string

const (
	// ReasonSumNotHundred means the weights do not add up to exactly 100.
	ReasonSumNotHundred Reason = "SUM_NOT_HUNDRED"
	// ReasonWeightOutOfRange means a single weight falls outside [0, 100].
	ReasonWeightOutOfRange Reason = "WEIGHT_OUT_OF_RANGE"
)

// ErrPreconditionViolation is returned when aggregation is attempted with a scheme
// that was not produced by NewScheme.
var ErrPreconditionViolation = errors.New("grading: scheme was not validated")

// InvalidSchemeError describes a rejected grading scheme.
type InvalidSchemeError struct {
	Reason    Reason
	Sum       int
	Component ComponentType
	Value     int
}

func (e *InvalidSchemeError) Error() string {
	switch e.Reason {
	case ReasonWeightOutOfRange:
		return fmt.Sprintf("weight %d for %s is outside [0, 100]", e.Value, e.Component)
	case ReasonSumNotHundred:
		return fmt.Sprintf("weights sum to %d, expected 100", e.Sum)
	default:
		return "invalid grading scheme"
	}
}

// Details returns the error fields for field-level display.
func (e *InvalidSchemeError) Details() map[string]interface{} {
	details := map[string]interface{}{"reason": e.Reason}
	switch e.Reason {
	case ReasonWeightOutOfRange:
		details["component"] = e.Component
		details["value"] = e.Value
	case ReasonSumNotHundred:
		details["sum"] = e.Sum
	}
	return details
}

// AsInvalidScheme unwraps err into an *InvalidSchemeError when possible.
func AsInvalidScheme(err error) (*InvalidSchemeError, bool) {
	var target *InvalidSchemeError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
