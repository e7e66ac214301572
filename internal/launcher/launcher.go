// Package launcher runs the external diffcfg check with a built command line.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	units "github.com/docker/go-units"

	"github.com/jandubois/diffcfg/internal/diffcfg"
	"github.com/jandubois/diffcfg/internal/probe"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxOutput = 64 * 1024
	gracePeriod      = 5 * time.Second
)

// Launcher runs the check executable as a subprocess.
type Launcher struct {
	checkPath   string
	timeout     time.Duration
	maxOutput   int64
	gracePeriod time.Duration
}

// New creates a Launcher. Zero timeout or maxOutput select the defaults.
func New(checkPath string, timeout time.Duration, maxOutput int64) *Launcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutput
	}
	return &Launcher{
		checkPath:   checkPath,
		timeout:     timeout,
		maxOutput:   maxOutput,
		gracePeriod: gracePeriod,
	}
}

// Run executes one command and converts the plugin's exit code and first
// output line into a Result. It never returns nil.
func (l *Launcher) Run(ctx context.Context, cmd *diffcfg.Command) *probe.Result {
	start := time.Now()
	result := l.run(ctx, cmd)
	duration := time.Since(start)

	if result.Metrics == nil {
		result.Metrics = map[string]any{}
	}
	result.Metrics["duration_ms"] = duration.Milliseconds()
	if result.Data == nil {
		result.Data = map[string]any{}
	}
	result.Data["service"] = cmd.ServiceDescription

	slog.Info("check executed",
		"service", cmd.ServiceDescription,
		"status", result.Status,
		"duration_ms", duration.Milliseconds(),
		"message", result.Message,
	)
	return result
}

func (l *Launcher) run(ctx context.Context, cmd *diffcfg.Command) *probe.Result {
	timeoutCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	proc := exec.CommandContext(timeoutCtx, l.checkPath, cmd.Arguments...)
	// SIGTERM first, SIGKILL after the grace period.
	proc.Cancel = func() error {
		return proc.Process.Signal(syscall.SIGTERM)
	}
	proc.WaitDelay = l.gracePeriod

	stdout := &limitedBuffer{limit: l.maxOutput}
	stderr := &limitedBuffer{limit: l.maxOutput}
	proc.Stdout = stdout
	proc.Stderr = stderr

	slog.Debug("launching check", "path", l.checkPath, "command", cmd)
	err := proc.Run()

	if err := ctx.Err(); err != nil {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: fmt.Sprintf("check aborted: %v", err),
		}
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: fmt.Sprintf("check timed out after %s", l.timeout),
		}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return &probe.Result{
				Status:  probe.StatusUnknown,
				Message: fmt.Sprintf("failed to run check: %v", err),
			}
		}
		exitCode = exitErr.ExitCode()
	}

	message, perfdata := parseOutput(stdout.String())
	if message == "" {
		message = fmt.Sprintf("check exited with code %d", exitCode)
	}

	result := &probe.Result{
		Status:  probe.StatusFromExitCode(exitCode),
		Message: message,
		Metrics: map[string]any{
			"exit_code": exitCode,
		},
		Data: map[string]any{
			"output": stdout.String(),
		},
	}
	if perfdata != "" {
		result.Data["perfdata"] = perfdata
	}
	if stderr.Len() > 0 {
		result.Data["stderr"] = stderr.String()
	}
	if stdout.truncated || stderr.truncated {
		result.Data["truncated"] = fmt.Sprintf("output limited to %s", units.BytesSize(float64(l.maxOutput)))
	}
	return result
}

// parseOutput splits the first line of plugin output into the status text and
// the performance data after '|'.
func parseOutput(out string) (message, perfdata string) {
	line, _, _ := strings.Cut(out, "\n")
	message, perfdata, _ = strings.Cut(line, "|")
	return strings.TrimSpace(message), strings.TrimSpace(perfdata)
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
// The buffer is a named field so io.Copy cannot bypass Write through
// bytes.Buffer.ReadFrom.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - int64(b.buf.Len())
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Len() int {
	return b.buf.Len()
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
