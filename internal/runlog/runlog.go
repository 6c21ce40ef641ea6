// Package runlog is a thin facade over the standard library log package,
// logging exclusively via Printf/Fatalf, adding a per-invocation run ID so
// concurrent scan/lift runs writing to the same stderr can be told apart,
// plus a simple percent-complete progress ticker, used by the scan
// command.
package runlog

import (
	"log"
	"os"

	"github.com/google/uuid"
)

// Logger tags every line it writes with a run ID.
type Logger struct {
	runID string
	std   *log.Logger
}

var std = New()

// New creates a Logger with a fresh run ID, writing to stderr.
func New() *Logger {
	runID := uuid.NewString()[:8]
	return &Logger{
		runID: runID,
		std:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Default returns the process-wide Logger used by packages that have no
// Logger of their own threaded through. Logging is fire-and-forget and
// not load-bearing, so a single shared instance is fine.
func Default() *Logger { return std }

// Printf logs a formatted message tagged with this run's ID.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.std.Printf("[%s] "+format, append([]interface{}{l.runID}, args...)...)
}

// Fatalf logs a formatted message tagged with this run's ID and exits
// with status 1.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.std.Fatalf("[%s] "+format, append([]interface{}{l.runID}, args...)...)
}

// Progress is a percent-complete ticker: it logs only when the rounded
// percentage changes, trading a terminal progress bar for plain log lines
// that stay readable when redirected to a file.
type Progress struct {
	logger *Logger
	label  string
	max    uint64
	last   int
	seen   bool
}

// NewProgress creates a Progress ticker for an operation expected to
// advance from 0 to max.
func NewProgress(logger *Logger, label string, max uint64) *Progress {
	return &Progress{logger: logger, label: label, max: max}
}

// Update reports the current position; it logs at most once per distinct
// percentage value.
func (p *Progress) Update(value uint64) {
	if p.max == 0 {
		return
	}
	if value > p.max {
		value = p.max
	}
	pct := int(value * 100 / p.max)
	if p.seen && pct == p.last {
		return
	}
	p.last = pct
	p.seen = true
	p.logger.Printf("%s: %d%%", p.label, pct)
}

// Finish logs a final 100% line.
func (p *Progress) Finish() {
	p.last = 100
	p.logger.Printf("%s: 100%%", p.label)
}
