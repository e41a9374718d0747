package pipeline

import "errors"

// Sentinel errors. Callers match with errors.Is; details are attached at the
// wrap site with fmt.Errorf("%w: ...").
var (
	// ErrConfiguration means the pipeline cannot be constructed as
	// configured. Fatal: there is no degraded mode without a labeler.
	ErrConfiguration = errors.New("invalid pipeline configuration")

	// ErrEmptyInput means an operation that requires text received none.
	ErrEmptyInput = errors.New("empty input text")
)
