package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Invoker runs one interpreter process for one test file.
// Abstracted so tests can script outcomes without spawning children.
type Invoker interface {
	Invoke(ctx context.Context, interpreter string, environ []string, file string) Invocation
}

// execInvoker is the real implementation: one child process per file,
// exactly one file argument per invocation, synchronously awaited.
type execInvoker struct {
	timeout time.Duration
}

// waitDelay bounds how long Wait may linger after cancellation. Test files
// routinely fork helpers; those grandchildren inherit the output pipe and
// would otherwise keep Run blocked long past the deadline.
const waitDelay = time.Second

func (x execInvoker) Invoke(ctx context.Context, interpreter string, environ []string, file string) Invocation {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, interpreter, file)
	cmd.Env = environ
	cmd.WaitDelay = waitDelay

	// Stdout and stderr are interleaved into one buffer so failure output
	// replays in the order the test emitted it.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	inv := Invocation{
		File:     file,
		Output:   output.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		inv.ExitCode = 0
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		inv.ExitCode = -1
		inv.Err = fmt.Errorf("timed out after %s", x.timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The interpreter ran and reported failure.
			inv.ExitCode = exitErr.ExitCode()
		} else {
			// The process never started (interpreter missing, not
			// executable, fork failure).
			inv.ExitCode = -1
			inv.Err = err
		}
	}

	return inv
}
