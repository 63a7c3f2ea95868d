package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mocap/internal/mocaperr"
)

// TimeLayout is the fixed-width UTC timestamp used in the run log and the
// catalog, so both sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runLogFloor is the least severe level the run log accepts whatever the
// console level is. Extraction start and finish records are info.
const runLogFloor = slog.LevelInfo

// newRecordHandler writes one JSON object per record with ts/level/msg keys.
// Error values are written as {"msg": ..., "kind": ...}.
func newRecordHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceRecordAttr,
	})
}

func replaceRecordAttr(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if len(groups) == 0 && attr.Value.Kind() == slog.KindTime {
			return slog.String("ts", attr.Value.Time().UTC().Format(TimeLayout))
		}
	case slog.LevelKey:
		if len(groups) == 0 {
			return slog.String("level", strings.ToLower(attr.Value.String()))
		}
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	case "error":
		if err, ok := attr.Value.Any().(error); ok && attr.Value.Kind() == slog.KindAny {
			return slog.Group("error",
				slog.String("msg", err.Error()),
				slog.String("kind", string(mocaperr.Classify(err))),
			)
		}
	}
	return attr
}

// openRunLog opens path for appending and returns a record handler at the
// console level or runLogFloor, whichever is more verbose.
func openRunLog(path string, console slog.Level, addSource bool) (slog.Handler, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return newRecordHandler(file, min(console, runLogFloor), addSource), nil
}

// teeHandler sends every record to the console and to the run log, each
// filtering by its own level.
type teeHandler struct {
	console slog.Handler
	runLog  slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.runLog.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr error
	if h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if h.runLog.Enabled(ctx, record.Level) {
		if err := h.runLog.Handle(ctx, record); err != nil {
			return err
		}
	}
	return consoleErr
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{console: h.console.WithAttrs(attrs), runLog: h.runLog.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{console: h.console.WithGroup(name), runLog: h.runLog.WithGroup(name)}
}
