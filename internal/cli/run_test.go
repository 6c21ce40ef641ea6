package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Run_NoArgsOrHelp_PrintsUsageAndExitsZero(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"looplift"},
		{"looplift", "--help"},
		{"looplift", "-h"},
	} {
		var stdout, stderr bytes.Buffer
		code := Run(nil, &stdout, &stderr, args, nil)

		require.Equal(t, 0, code)
		require.Empty(t, stderr.String())
		require.Contains(t, stdout.String(), "scan")
		require.Contains(t, stdout.String(), "lift")
	}
}

func Test_Run_UnknownCommand_ExitsNonzeroWithUsageOnStderr(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := Run(nil, &stdout, &stderr, []string{"looplift", "frobnicate"}, nil)

	require.NotEqual(t, 0, code)
	require.Contains(t, stderr.String(), "unknown command")
}

func Test_Run_ScanMissingArguments_ExitsTwo(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := Run(nil, &stdout, &stderr, []string{"looplift", "scan", "onlyonearg"}, nil)

	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "error:")
}

func Test_Run_ScanNonexistentFile_ExitsOne(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	devicePath := dir + "/device"
	require.NoError(t, os.WriteFile(devicePath, []byte("xx"), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run(nil, &stdout, &stderr, []string{"looplift", "scan", dir + "/missing-file", devicePath}, nil)

	require.Equal(t, 1, code)
}
