package extract

import "fmt"

// PayloadReadError reports that a document payload could not be read to the
// end. References found before the failure are still returned alongside it.
type PayloadReadError struct {
	Err error
}

// Error implements the error interface.
func (e *PayloadReadError) Error() string {
	return fmt.Sprintf("failed to read document payload: %v", e.Err)
}

// Unwrap returns the underlying read error.
func (e *PayloadReadError) Unwrap() error {
	return e.Err
}
