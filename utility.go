package trace

import (
	"strings"

	"go.uber.org/multierr"
)

// combineErrors merges multiple errors, dropping nils.
func combineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}

// trimTracerName normalizes a tracer name for identity lookups.
func trimTracerName(name string) string {
	return strings.TrimSpace(name)
}
