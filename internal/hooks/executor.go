package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/zcc-dev/zcc/internal/telemetry"
)

const (
	// DefaultTimeout applies to hooks without their own timeout.
	DefaultTimeout = 30 * time.Second

	killGrace = 2 * time.Second
)

// Executor runs hook commands as child processes.
type Executor struct {
	// Root is the working directory and ZCC_PROJECT_ROOT for hooks.
	Root string

	// DefaultTimeout is used when a hook sets none.
	DefaultTimeout time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Run executes one hook with in as JSON on stdin. It never returns an error;
// failures are described in the Result.
func (e *Executor) Run(ctx context.Context, c *Config, in Input) (res Result) {
	start := time.Now()
	res = Result{HookID: c.ID}

	ctx, span := telemetry.StartSpan(ctx, "hooks.Run", "hook", c.ID, "event", string(c.Event))
	defer func() {
		res.Duration = time.Since(start)
		var err error
		if res.Error != "" {
			err = errors.New(res.Error)
		}
		telemetry.EndSpan(span, err)
		e.Metrics.RecordHook(string(c.Event), outcomeLabel(res), res.Duration)
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		res.ExitCode = -1
		res.Error = err.Error()
		return res
	}

	timeout := e.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c.Timeout > 0 {
		timeout = time.Duration(c.Timeout) * time.Millisecond
	}

	var cmd *exec.Cmd
	if len(c.Args) > 0 {
		cmd = exec.Command(c.Command, c.Args...)
	} else {
		cmd = shellCommand(c.Command)
	}
	isolate(cmd)
	cmd.WaitDelay = killGrace
	cmd.Dir = e.Root
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(),
		"ZCC_HOOK_EVENT="+string(c.Event),
		"ZCC_HOOK_ID="+c.ID,
		"ZCC_PROJECT_ROOT="+e.Root,
	)
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Start(); err != nil {
		res.ExitCode = -1
		res.Error = err.Error()
		return res
	}

	done := make(chan struct{})
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err = <-waitErr:
	case <-timer.C:
		res.TimedOut = true
		terminate(cmd, done, killGrace)
		err = <-waitErr
	case <-ctx.Done():
		terminate(cmd, done, killGrace)
		err = <-waitErr
		res.Error = ctx.Err().Error()
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case res.TimedOut:
		res.ExitCode = -1
		res.Error = "timed out after " + timeout.String()
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			if res.Error == "" {
				res.Error = err.Error()
			}
		}
	}
	res.ShouldBlock = res.ExitCode == ExitBlock

	e.logger().Debug("hook finished", "hook", c.ID, "exit", res.ExitCode, "timedOut", res.TimedOut)
	return res
}

func outcomeLabel(r Result) string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.ShouldBlock:
		return "blocked"
	case r.Success():
		return "success"
	}
	return "failure"
}
