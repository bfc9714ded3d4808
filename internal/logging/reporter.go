package logging

import (
	"context"
	"log/slog"
	"sort"
)

// SlogReporter forwards upstream failures to a logger with their tags as
// attributes. It satisfies planner.ErrorReporter.
type SlogReporter struct {
	Logger *slog.Logger
}

func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	return &SlogReporter{Logger: logger}
}

func (r *SlogReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = FromContext(ctx)
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("component", "error_reporter"))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, tags[k]))
	}
	LogError(logger, "upstream_failure_reported", err, attrs...)
}
