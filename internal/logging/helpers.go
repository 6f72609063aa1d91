package logging

import (
	"maps"

	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// WithFields binds fields to logger when it implements FieldsLogger and
// returns logger unchanged otherwise. The map is copied.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	return fl.WithFields(maps.Clone(fields))
}
