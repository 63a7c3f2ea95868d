package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent names the package or command emitting the record.
	FieldComponent = "component"
	// FieldRunID is the extraction run identifier recorded in the catalog.
	FieldRunID = "run_id"
	// FieldFile is the capture file ID (base name without extension).
	FieldFile = "file"
	// FieldStyle is the style label of a clip.
	FieldStyle = "style"
	// FieldSubject is the performer recorded in the frame-cut table.
	FieldSubject = "subject"
	// FieldFrames is a frame count.
	FieldFrames = "frames"
	// FieldPath is a filesystem path read or written.
	FieldPath = "path"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type runIDKey struct{}

// WithRunID stores the extraction run ID on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
