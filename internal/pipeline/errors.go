package pipeline

import "errors"

// ErrStop ends the pipeline for the current server without reporting a
// failure.
var ErrStop = errors.New("pipeline stopped")
