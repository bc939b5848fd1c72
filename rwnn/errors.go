package rwnn

import (
	"fmt"

	"github.com/pkg/errors"
)

// ShapeError reports a dimension mismatch between matrices that are required
// to agree, for example a design matrix whose row count differs from the
// target's. It is fatal wherever it occurs.
type ShapeError struct {
	Op   string
	Want int
	Got  int
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: want %d, got %d", e.Op, e.Want, e.Got)
}

// IsShapeMismatch reports whether err is, or wraps, a ShapeError.
func IsShapeMismatch(err error) bool {
	_, ok := errors.Cause(err).(ShapeError)
	return ok
}
