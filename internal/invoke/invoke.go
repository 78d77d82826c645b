// Package invoke runs the Dart Sass launcher as a child process with the
// caller's standard streams attached.
//
// Output is never buffered or captured: the child writes straight to the
// configured writers, so long-running watch sessions stream as they happen.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/logging"
)

// Error kinds reported by Invoke. Callers match them with errors.Is.
var (
	ErrNotExecutable = errors.New("not an executable file")
	ErrSpawn         = errors.New("failed to start process")
	ErrInterrupted   = errors.New("interrupted while waiting for process")
)

// DefaultWaitDelay is how long a cancelled child gets to exit after the
// interrupt before it is killed.
const DefaultWaitDelay = 5 * time.Second

// Result is the outcome of a process that ran to completion.
type Result struct {
	// ExitCode is the child's exit status, or -1 if it was terminated by a
	// signal.
	ExitCode int
}

// Runner is the interface for launching the tool.
type Runner interface {
	Invoke(ctx context.Context, path string, args []string) (Result, error)
}

// Invoker implements Runner on top of os/exec.
type Invoker struct {
	Stdin  io.Reader // nil means os.Stdin
	Stdout io.Writer // nil means os.Stdout
	Stderr io.Writer // nil means os.Stderr

	// Dir is the working directory of the child; empty inherits ours.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// WaitDelay bounds the wait after cancellation; zero means DefaultWaitDelay.
	WaitDelay time.Duration

	Logger logging.Logger
}

// NewInvoker creates an Invoker wired to the process's standard streams.
func NewInvoker(logger logging.Logger) *Invoker {
	return &Invoker{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// CheckExecutable reports ErrNotExecutable when path is missing, is not a
// regular file, or (outside Windows) has no execute bit set.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotExecutable, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrNotExecutable, path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%w: %s has mode %s", ErrNotExecutable, path, info.Mode().Perm())
	}
	return nil
}

// Invoke starts path with args, waits for it and returns its exit status.
// A non-zero exit is not an error. Cancelling ctx interrupts the child (kills
// it on Windows) and yields ErrInterrupted.
func (i *Invoker) Invoke(ctx context.Context, path string, args []string) (Result, error) {
	if err := CheckExecutable(path); err != nil {
		return Result{}, err
	}

	logger := logging.OrNop(i.Logger)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = readerOr(i.Stdin, os.Stdin)
	cmd.Stdout = writerOr(i.Stdout, os.Stdout)
	cmd.Stderr = writerOr(i.Stderr, os.Stderr)
	cmd.Dir = i.Dir
	if len(i.Env) > 0 {
		cmd.Env = append(os.Environ(), i.Env...)
	}

	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = i.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	logger.Debug("starting process", "path", path, "args", args)

	if err := cmd.Start(); err != nil {
		return Result{}, translateError(ctx, path, err)
	}

	err := cmd.Wait()
	if err != nil {
		return translateWaitError(ctx, path, err)
	}

	logger.Debug("process exited", "path", path, "code", 0)
	return Result{ExitCode: 0}, nil
}

// translateError maps a start failure onto the package's error kinds.
func translateError(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %w", ErrInterrupted, path, ctx.Err())
	}
	return fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
}

// translateWaitError separates cancellation from an ordinary non-zero exit.
func translateWaitError(ctx context.Context, path string, err error) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrInterrupted, path, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode()}, nil
	}

	// I/O copy failures and the like
	return Result{}, fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
}

func readerOr(r, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
