// Package errors provides structured error types for modeclock.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries an optional path, offending value,
// human-readable detail and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseShutdown, errors.KindConflict).
//		Path("hooks", "3").
//		Value(3).
//		Detail("slot %d already registered", 3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidInput(errors.PhaseConfig, "log.level must be one of debug, info, warn, error")
//	err := errors.NotFound(errors.PhaseCall, "export", "sum")
//
// The mode-accounting hot path (packages clock and tracker) never returns
// errors; these types serve the engine, configuration, shutdown and CLI layers.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
