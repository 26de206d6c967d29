package engine

import (
	"errors"
	"fmt"
)

// ParamError reports a parameter outside its documented range.
//
// The engine itself never returns ParamError: Process clamps. Callers that
// prefer rejecting bad input use Params.Validate.
type ParamError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s = %g is outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// IsParamError reports whether err wraps a ParamError.
func IsParamError(err error) bool {
	var pe *ParamError
	return errors.As(err, &pe)
}
