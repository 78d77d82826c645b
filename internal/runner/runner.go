// Package runner drives one sassrun invocation: resolve the cache entry, fetch
// it when missing, validate the launcher and run it.
//
// The pipeline is a small state machine:
//
//	Idle -> Resolving -> (hit)  -> Invoking -> Done
//	                  -> (miss) -> Fetching -> Validating -> Invoking -> Done
//
// Any failure moves to Failed and is returned with its original kind intact.
// A skipped request goes straight from Idle to Done without touching the
// filesystem or the network.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/binary"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/invoke"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/logging"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/platform"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/transaction"
)

// WatchFlag is appended to the tool arguments in watch mode.
const WatchFlag = "--watch"

// ErrToolExecutionFailed matches every *ExitError.
var ErrToolExecutionFailed = errors.New("tool execution failed")

// ExitError reports a launcher that exited with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit code %d", ErrToolExecutionFailed, e.Code)
}

// Is makes errors.Is(err, ErrToolExecutionFailed) hold for any exit code.
func (e *ExitError) Is(target error) bool {
	return target == ErrToolExecutionFailed
}

// Request describes one run.
type Request struct {
	Version     string
	URLTemplate string // empty means binary.DefaultURLTemplate
	Platform    platform.Descriptor

	Args  []string
	Watch bool
	Skip  bool

	// Optional verification sources, expanded like URLTemplate.
	ChecksumURLTemplate  string
	SignatureURLTemplate string
}

// Fetcher is the part of binary.Fetcher the runner needs.
type Fetcher interface {
	Fetch(ctx context.Context, req binary.FetchRequest) (*binary.FetchResult, error)
}

// Options wires a Runner.
type Options struct {
	Locator *binary.Locator
	Fetcher Fetcher
	Invoker invoke.Runner
	Logger  logging.Logger

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
	// Now stamps receipts; nil means time.Now.
	Now func() time.Time
}

// Runner executes requests. A Runner is not safe for concurrent use; separate
// Runners (or processes) may share a cache root.
type Runner struct {
	locator      *binary.Locator
	fetcher      Fetcher
	invoker      invoke.Runner
	logger       logging.Logger
	onTransition func(from, to State)
	now          func() time.Time

	state State
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Locator == nil {
		return nil, errors.New("runner: locator is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("runner: fetcher is required")
	}
	if opts.Invoker == nil {
		return nil, errors.New("runner: invoker is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		locator:      opts.Locator,
		fetcher:      opts.Fetcher,
		invoker:      opts.Invoker,
		logger:       logging.OrNop(opts.Logger),
		onTransition: opts.OnTransition,
		now:          now,
		state:        Idle,
	}, nil
}

// State returns the state reached by the last call.
func (r *Runner) State() State {
	return r.state
}

// BuildArgs returns a fresh copy of args with WatchFlag appended in watch mode.
func BuildArgs(args []string, watch bool) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args...)
	if watch {
		out = append(out, WatchFlag)
	}
	return out
}

// Run makes sure the requested release is cached and runs it with req.Args.
// A non-zero exit is reported as *ExitError.
func (r *Runner) Run(ctx context.Context, req Request) error {
	r.reset()

	if req.Skip {
		r.logger.Info("skipping sass execution")
		r.transition(Done)
		return nil
	}

	entry, hit, err := r.resolve(ctx, req)
	if err != nil {
		return r.fail(err)
	}
	if !hit {
		if err := r.validate(entry); err != nil {
			return r.fail(err)
		}
	}

	r.transition(Invoking)
	args := BuildArgs(req.Args, req.Watch)
	r.logger.Info("running sass", "executable", entry.ExecutablePath, "args", args)

	res, err := r.invoker.Invoke(ctx, entry.ExecutablePath, args)
	if err != nil {
		return r.fail(err)
	}
	if res.ExitCode != 0 {
		return r.fail(&ExitError{Code: res.ExitCode})
	}

	r.transition(Done)
	return nil
}

// Ensure makes sure the requested release is cached and its launcher is
// executable, without running it. Skip is ignored.
func (r *Runner) Ensure(ctx context.Context, req Request) (*binary.Entry, error) {
	r.reset()

	entry, _, err := r.resolve(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.validate(entry); err != nil {
		return nil, r.fail(err)
	}

	r.transition(Done)
	return entry, nil
}

// resolve computes the entry and fetches it on a miss. hit reports whether
// the launcher was already present without any fetching.
func (r *Runner) resolve(ctx context.Context, req Request) (*binary.Entry, bool, error) {
	r.transition(Resolving)

	entry, err := r.locator.Resolve(binary.Release{Version: req.Version, URLTemplate: req.URLTemplate}, req.Platform)
	if err != nil {
		return nil, false, err
	}

	if entry.Installed() {
		r.logger.Debug("cache hit", "entry", entry.Name, "executable", entry.ExecutablePath)
		return entry, true, nil
	}

	r.transition(Fetching)
	if err := r.fetch(ctx, req, entry); err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// fetch populates entry under its lock file. Another process may have
// finished the same entry while we waited, in which case nothing is fetched.
func (r *Runner) fetch(ctx context.Context, req Request, entry *binary.Entry) error {
	lock, err := transaction.AcquireLock(ctx, entry.RootDir, entry.Name)
	if err != nil {
		return fmt.Errorf("lock cache entry %s: %w", entry.Name, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("failed to release cache lock", "path", lock.Path(), "error", err)
		}
	}()

	if entry.Installed() {
		r.logger.Debug("cache populated while waiting for lock", "entry", entry.Name)
		return nil
	}

	fetchReq := binary.FetchRequest{URL: entry.URL, DestDir: entry.ExtractDir}
	if req.ChecksumURLTemplate != "" {
		if fetchReq.ChecksumURL, err = binary.ExpandURL(req.ChecksumURLTemplate, req.Version, req.Platform); err != nil {
			return err
		}
	}
	if req.SignatureURLTemplate != "" {
		if fetchReq.SignatureURL, err = binary.ExpandURL(req.SignatureURLTemplate, req.Version, req.Platform); err != nil {
			return err
		}
	}

	r.logger.Info("downloading dart-sass", "version", entry.Version, "url", entry.URL)
	result, err := r.fetcher.Fetch(ctx, fetchReq)
	if err != nil {
		return err
	}

	receipt := binary.NewReceipt(r.locator.Tool, entry, result, r.now())
	if err := binary.WriteReceipt(entry.ExtractDir, receipt); err != nil {
		r.logger.Warn("failed to write install receipt", "dir", entry.ExtractDir, "error", err)
	}
	return nil
}

func (r *Runner) validate(entry *binary.Entry) error {
	r.transition(Validating)
	return invoke.CheckExecutable(entry.ExecutablePath)
}

func (r *Runner) reset() {
	r.state = Idle
}

func (r *Runner) transition(to State) {
	from := r.state
	r.state = to
	r.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if r.onTransition != nil {
		r.onTransition(from, to)
	}
}

func (r *Runner) fail(err error) error {
	r.transition(Failed)
	return err
}
