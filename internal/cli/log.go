// Package cli implements the recompose command-line interface.
//
// The commands drive the same [pipeline.Runner] the HTTP API uses, one
// short-lived session per invocation.
//
// # Commands
//
//   - containers: list the template containers of a document
//   - resolve: find the design group a container name refers to
//   - transform: project one source container onto one target container
//   - assemble: map every container of a source onto a template and write
//     the assembled document
//   - project: validate, sanitize and graph saved projects
//   - serve: run the HTTP API
//   - history: list recorded generation calls
//   - cache: manage the strategy and asset cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs every engine hook event. The logger travels in the command context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with short timestamps ("15:04:05.00").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the duration of a step when it completes.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with an "elapsed" key appended.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if ctx == nil {
		return log.Default()
	}
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
