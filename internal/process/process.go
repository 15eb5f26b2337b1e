// Package process runs external tools with bounded lifetimes.
//
// Every command runs in its own process group and is killed as a group when
// its context ends, so a hung converter cannot outlive the caller.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout indicates the command was killed because its deadline passed.
var ErrTimeout = errors.New("command timed out")

// waitDelay bounds how long Wait blocks on inherited pipes after a kill.
const waitDelay = 2 * time.Second

// maxStderr caps captured stderr kept in error messages.
const maxStderr = 4 << 10

// Output holds what a finished command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Run executes name with args and waits for it to exit.
//
// If timeout > 0 the command is bounded by it in addition to ctx.
// Errors wrap ErrTimeout on deadline, ctx.Err() on cancellation, and the
// *exec.ExitError (with trimmed stderr) on non-zero exit.
func Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Output, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	isolate(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		if timeout > 0 {
			return out, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, name)
		}
		return out, fmt.Errorf("%w: %s", ErrTimeout, name)
	case ctxErr != nil:
		return out, ctxErr
	}

	if msg := trimStderr(out.Stderr); msg != "" {
		return out, fmt.Errorf("%s: %w", msg, err)
	}
	return out, err
}

// trimStderr keeps the tail of stderr, which is where tools print the reason.
func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	return s
}
