package runlog

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	return &Logger{runID: "test0000", std: log.New(buf, "", 0)}
}

func Test_Logger_Printf_TagsLineWithRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.Printf("hello %s", "world")

	require.Contains(t, buf.String(), "[test0000]")
	require.Contains(t, buf.String(), "hello world")
}

func Test_Progress_Update_LogsOnlyOnPercentageChange(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := newTestLogger(&buf)
	p := NewProgress(l, "scan", 100)

	p.Update(0)
	p.Update(0)
	p.Update(1)
	p.Update(50)
	p.Update(50)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3, "expected one line per distinct percentage: 0, 1, 50")
}

func Test_Progress_Update_ClampsValueAboveMax(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := newTestLogger(&buf)
	p := NewProgress(l, "scan", 10)

	p.Update(999)
	require.Contains(t, buf.String(), "100%")
}

func Test_Progress_Finish_LogsHundredPercent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := newTestLogger(&buf)
	p := NewProgress(l, "scan", 10)
	p.Finish()

	require.Contains(t, buf.String(), "100%")
}
