package reduce

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ConfigError reports an unusable reduction request: an unknown strategy,
// a bad enum value, a stack trim on a non-stacking ensemble, or missing
// training data. The target is left untouched.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return "reduce: " + e.Reason
}

// DegenerateError reports an edit that would leave no valid network or
// ensemble behind, such as removing every neuron of a layer or every
// member of an ensemble.
type DegenerateError struct {
	Reason string
}

func (e DegenerateError) Error() string {
	return "reduce: " + e.Reason
}

// IsConfigError reports whether err stems from an invalid request.
func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(ConfigError)
	return ok
}

// IsDegenerate reports whether err stems from an edit with no valid result.
func IsDegenerate(err error) bool {
	_, ok := errors.Cause(err).(DegenerateError)
	return ok
}

// MemberError wraps a failure from one ensemble member during a
// distributed reduction.
type MemberError struct {
	Index int
	Err   error
}

func (e MemberError) Error() string {
	return fmt.Sprintf("member %d: %v", e.Index, e.Err)
}

// Cause exposes the member's underlying failure.
func (e MemberError) Cause() error {
	return e.Err
}

// MemberErrors aggregates per-member failures. Members that succeeded keep
// their reduced state; only the listed members were left as they were.
type MemberErrors []MemberError

func (es MemberErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "reduce: " + strings.Join(parts, "; ")
}
