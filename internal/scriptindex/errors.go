package scriptindex

import (
	"errors"
	"fmt"

	"github.com/harrison/scriptindex/internal/extract"
	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/resolve"
)

// DocumentError reports the failure of one document. Phase is the state
// the document was in when it failed: extracting for payload read errors,
// resolving for filesystem errors, idle when a passthrough document could
// not be handed downstream.
type DocumentError struct {
	Path  string
	Phase models.DocumentState
	Err   error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.Path, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// IsPayloadReadError reports whether err stems from reading a document payload.
func IsPayloadReadError(err error) bool {
	var target *extract.PayloadReadError
	return errors.As(err, &target)
}

// IsResolutionError reports whether err stems from matching script files.
func IsResolutionError(err error) bool {
	var target *resolve.ResolutionError
	return errors.As(err, &target)
}
