package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/binary"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/config"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/invoke"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/logging"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/platform"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/runner"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath  string
	version     string
	cacheDir    string
	urlTemplate string
	nestedDir   string
	osName      string
	archName    string
	skip        bool
	logLevel    string
	logFormat   string
}

// app carries the streams and host detector shared by every command.
type app struct {
	opts     globalOptions
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	detector platform.Detector
}

// session is everything a command needs after flags, config and platform
// have been resolved.
type session struct {
	cfg         *config.Config
	desc        platform.Descriptor
	platformErr error
	logger      *logging.ZapLogger
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// execute runs the CLI and returns the process exit status.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		detector: platform.NewDetector(),
	}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return exitCode(root.ExecuteContext(ctx), stderr)
}

// exitCode maps a command error to a process status. A failing sass run
// passes its own status through; everything else is 1.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code > 0 {
			return exitErr.Code
		}
		return 1
	}

	fmt.Fprintf(stderr, "Error: %s\n", config.FormatError(err, false))
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sassrun",
		Short: "Download and run Dart Sass",
		Long: `sassrun keeps a platform-specific Dart Sass release in a local cache and runs it.

The release is downloaded and extracted on first use. Later runs reuse the cache
without touching the network. Arguments after -- are passed to sass unchanged and
sass's exit status becomes sassrun's.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Config file (default ./"+config.DefaultConfigFile+" if present)")
	flags.StringVar(&a.opts.version, "sass-version", "", "Dart Sass version (default "+binary.DefaultVersion+")")
	flags.StringVar(&a.opts.cacheDir, "cache-dir", "", "Cache root (default ~/.sassrun/cache)")
	flags.StringVar(&a.opts.urlTemplate, "url-template", "", "Download URL template")
	flags.StringVar(&a.opts.nestedDir, "nested-dir", "", "Directory inside the archive that holds the launcher")
	flags.StringVar(&a.opts.osName, "os", "", "Override the detected operating system")
	flags.StringVar(&a.opts.archName, "arch", "", "Override the detected architecture")
	flags.BoolVar(&a.opts.skip, "skip", false, "Do nothing and exit successfully")
	flags.StringVar(&a.opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.opts.logFormat, "log-format", string(logging.FormatConsole), "Log format: console or json")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newInstallCmd(a))
	cmd.AddCommand(newCacheCmd(a))
	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// setup loads the session and fails when the host platform is unsupported.
func (a *app) setup(cmd *cobra.Command) (*session, error) {
	s, err := a.load(cmd)
	if err != nil {
		return nil, err
	}
	if s.platformErr != nil {
		s.close()
		return nil, s.platformErr
	}
	return s, nil
}

// load builds the logger, detects the platform once and loads the
// configuration with flag overrides applied last. An unsupported platform is
// kept in the session instead of failing, so a skipped run can still succeed.
func (a *app) load(cmd *cobra.Command) (*session, error) {
	logger, err := logging.New(a.stderr, logging.Options{
		Level:  a.opts.logLevel,
		Format: logging.Format(a.opts.logFormat),
	})
	if err != nil {
		return nil, err
	}

	detector := a.detector
	if a.opts.osName != "" || a.opts.archName != "" {
		detector = &platform.StaticDetector{RawOS: a.opts.osName, RawArch: a.opts.archName, Fallback: a.detector}
	}

	var parser *config.Parser
	desc, info, platformErr := platform.DetectDescriptor(cmd.Context(), detector)
	switch {
	case platformErr == nil:
		logger.Debug("platform detected", "platform", desc.String())
		parser = config.NewParser(desc, info, logger)
	case errors.Is(platformErr, platform.ErrUnsupportedPlatform):
		logger.Debug("platform unresolved", "error", platformErr)
		parser = config.NewUnresolvedParser(platformErr, logger)
	default:
		return nil, platformErr
	}

	cfg, err := parser.Load(cmd.Context(), config.LoadOptions{Path: a.opts.configPath})
	if err != nil {
		if platformErr != nil {
			return nil, platformErr
		}
		return nil, err
	}

	a.applyFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &session{cfg: cfg, desc: desc, platformErr: platformErr, logger: logger}, nil
}

// applyFlags copies explicitly set flags over cfg.
func (a *app) applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("sass-version", &cfg.Version, a.opts.version)
	set("cache-dir", &cfg.CacheDir, a.opts.cacheDir)
	set("url-template", &cfg.URLTemplate, a.opts.urlTemplate)
	set("nested-dir", &cfg.NestedDir, a.opts.nestedDir)
	if flags.Changed("skip") {
		cfg.Skip = a.opts.skip
	}
}

func (s *session) locator() (*binary.Locator, error) {
	return binary.NewLocator(s.cfg.CacheDir, s.cfg.NestedDir)
}

// newRunner wires the pipeline for one command.
func (a *app) newRunner(s *session) (*runner.Runner, error) {
	loc, err := s.locator()
	if err != nil {
		return nil, err
	}

	keyring := s.cfg.Verify.Keyring
	if keyring != "" {
		if keyring, err = homedir.Expand(keyring); err != nil {
			return nil, fmt.Errorf("expand keyring path: %w", err)
		}
	}
	fetcher, err := binary.NewFetcher(binary.FetcherConfig{
		Retries:     s.cfg.Download.Retries,
		KeyringPath: keyring,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}

	inv := invoke.NewInvoker(s.logger)
	inv.Stdin = a.stdin
	inv.Stdout = a.stdout
	inv.Stderr = a.stderr

	return runner.New(runner.Options{
		Locator: loc,
		Fetcher: fetcher,
		Invoker: inv,
		Logger:  s.logger,
	})
}

// request builds the runner request. Positional arguments replace the
// configured ones.
func (s *session) request(args []string, watch bool) runner.Request {
	sassArgs := s.cfg.Args
	if len(args) > 0 {
		sassArgs = args
	}
	return runner.Request{
		Version:              s.cfg.Version,
		URLTemplate:          s.cfg.URLTemplate,
		Platform:             s.desc,
		Args:                 sassArgs,
		Watch:                watch || s.cfg.Watch,
		Skip:                 s.cfg.Skip,
		ChecksumURLTemplate:  s.cfg.Verify.ChecksumURL,
		SignatureURLTemplate: s.cfg.Verify.SignatureURL,
	}
}
