package preset

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Preset error codes.
const (
	ErrCodeNotFound      = "E201" // file or directory missing
	ErrCodeBuildFailed   = "E202" // CUE did not parse or evaluate
	ErrCodeSchema        = "E203" // a preset violates #Preset
	ErrCodeUnknownPreset = "E204" // lookup of a name the catalog lacks
)

// LoadError reports a preset catalog problem.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownPreset reports whether err is an E204 lookup failure.
func IsUnknownPreset(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeUnknownPreset
}

// cueError converts a CUE error into a LoadError, keeping the first
// position CUE reports.
func cueError(code, context string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		if pos := errs[0].Position(); pos.IsValid() {
			le.Pos = pos
		}
		le.Message = fmt.Sprintf("%s: %s", context, errs[0].Error())
	}
	return le
}
