package launcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandubois/diffcfg/internal/diffcfg"
	"github.com/jandubois/diffcfg/internal/probe"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping on Windows")
	}
	path := filepath.Join(t.TempDir(), "check_diffcfg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testCommand() *diffcfg.Command {
	return &diffcfg.Command{
		ServiceDescription: diffcfg.ServiceDescription,
		Arguments: []string{
			"--host", "sw1",
			"--netbox", "https://netbox.example.com",
			"--netbox-token", "abc123",
			"--server", "http://sw1/config",
			"--server-token", "xyz789",
		},
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		code     string
		expected probe.Status
	}{
		{"0", probe.StatusOK},
		{"1", probe.StatusWarning},
		{"2", probe.StatusCritical},
		{"3", probe.StatusUnknown},
		{"42", probe.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			path := writeScript(t, "echo 'Config Diff: 3 lines differ | diff=3;1;2'\nexit "+tt.code)
			result := New(path, time.Second, 0).Run(context.Background(), testCommand())

			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, "Config Diff: 3 lines differ", result.Message)
			assert.Equal(t, "diff=3;1;2", result.Data["perfdata"])
			assert.Equal(t, diffcfg.ServiceDescription, result.Data["service"])
			assert.Contains(t, result.Metrics, "duration_ms")
		})
	}
}

func TestRunPassesArguments(t *testing.T) {
	path := writeScript(t, `printf '%s\n' "$@" | tr '\n' ' '`)
	result := New(path, time.Second, 0).Run(context.Background(), testCommand())

	require.Equal(t, probe.StatusOK, result.Status)
	assert.Equal(t, strings.Join(testCommand().Arguments, " "), result.Message)
}

func TestRunEmptyOutput(t *testing.T) {
	path := writeScript(t, "echo oops >&2\nexit 2")
	result := New(path, time.Second, 0).Run(context.Background(), testCommand())

	assert.Equal(t, probe.StatusCritical, result.Status)
	assert.Equal(t, "check exited with code 2", result.Message)
	assert.Equal(t, "oops\n", result.Data["stderr"])
}

func TestRunMissingExecutable(t *testing.T) {
	result := New(filepath.Join(t.TempDir(), "nope"), time.Second, 0).Run(context.Background(), testCommand())
	assert.Equal(t, probe.StatusUnknown, result.Status)
	assert.Contains(t, result.Message, "failed to run check")
}

func TestRunTimeout(t *testing.T) {
	path := writeScript(t, "exec sleep 5")
	l := New(path, 100*time.Millisecond, 0)
	l.gracePeriod = 100 * time.Millisecond

	start := time.Now()
	result := l.Run(context.Background(), testCommand())

	assert.Equal(t, probe.StatusUnknown, result.Status)
	assert.Contains(t, result.Message, "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunTruncatesOutput(t *testing.T) {
	path := writeScript(t, "i=0\nwhile [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done")
	result := New(path, time.Second, 64).Run(context.Background(), testCommand())

	assert.Equal(t, probe.StatusOK, result.Status)
	assert.Len(t, result.Data["output"], 64)
	assert.Contains(t, result.Data["truncated"], "64")
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		in       string
		message  string
		perfdata string
	}{
		{"OK - configs match\n", "OK - configs match", ""},
		{"CRIT - 2 lines | diff=2\nline one\nline two\n", "CRIT - 2 lines", "diff=2"},
		{"", "", ""},
		{"\nsecond line", "", ""},
	}
	for _, tt := range tests {
		message, perfdata := parseOutput(tt.in)
		assert.Equal(t, tt.message, message)
		assert.Equal(t, tt.perfdata, perfdata)
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 5}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.truncated)

	n, err = b.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcde", b.String())
	assert.True(t, b.truncated)
}

func TestLimitedBufferWithCopy(t *testing.T) {
	// exec.Cmd fills stdout and stderr through io.Copy.
	b := &limitedBuffer{limit: 64}
	n, err := io.Copy(b, strings.NewReader(strings.Repeat("x", 1100)))
	require.NoError(t, err)
	assert.EqualValues(t, 1100, n)
	assert.Equal(t, 64, b.Len())
	assert.True(t, b.truncated)
}

func TestRunCallerDeadline(t *testing.T) {
	path := writeScript(t, "exec sleep 5")
	l := New(path, time.Minute, 0)
	l.gracePeriod = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	result := l.Run(ctx, testCommand())

	assert.Equal(t, probe.StatusUnknown, result.Status)
	assert.Contains(t, result.Message, "aborted")
	assert.NotContains(t, result.Message, "timed out after")
}
