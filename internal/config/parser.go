package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/logging"
	"github.com/ZebulonRouseFrantzich/sassrun/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser turns a sassrun.lua file into a Config.
type Parser struct {
	desc        platform.Descriptor
	info        *platform.Info
	platformErr error
	logger      logging.Logger
}

// NewParser creates a parser that exposes desc (and info, which may be nil)
// to config files as the read-only platform table.
func NewParser(desc platform.Descriptor, info *platform.Info, logger logging.Logger) *Parser {
	return &Parser{desc: desc, info: info, logger: logging.OrNop(logger)}
}

// NewUnresolvedParser creates a parser for a host whose platform could not be
// resolved. Config files that read the platform table fail with cause.
func NewUnresolvedParser(cause error, logger logging.Logger) *Parser {
	return &Parser{platformErr: cause, logger: logging.OrNop(logger)}
}

// ParseFile reads and parses path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > MaxConfigSize {
		return nil, fmt.Errorf("config %s exceeds %d bytes", path, MaxConfigSize)
	}

	p.logger.Debug("parsing config", "path", path)
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Fields the file leaves out
// keep their Default values.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, ParseTimeout)
	defer cancel()
	L.SetContext(ctx)

	if p.platformErr != nil {
		platform.InjectUnavailableTable(L, p.platformErr)
	} else if err := platform.InjectPlatformTable(L, p.desc, p.info); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("evaluate config: %w", ctxErr)
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return p.extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "sass" table over the defaults.
func (p *Parser) extractConfig(L *lua.LState) (*Config, error) {
	sassVal := L.GetGlobal(luaGlobalSass)
	if sassVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'sass' table",
			Detail:  fmt.Sprintf("expected table, got %s", sassVal.Type()),
		}
	}
	table := sassVal.(*lua.LTable)

	cfg := Default()
	f := fields{table: table, prefix: luaGlobalSass}

	f.str(luaFieldVersion, &cfg.Version)
	f.str(luaFieldCacheDir, &cfg.CacheDir)
	f.str(luaFieldURLTemplate, &cfg.URLTemplate)
	f.str(luaFieldNestedDir, &cfg.NestedDir)
	f.boolean(luaFieldWatch, &cfg.Watch)
	f.boolean(luaFieldSkip, &cfg.Skip)
	f.list(luaFieldArgs, &cfg.Args)

	if verify, ok := f.sub(luaFieldVerify); ok {
		verify.str(luaFieldChecksumURL, &cfg.Verify.ChecksumURL)
		verify.str(luaFieldSigURL, &cfg.Verify.SignatureURL)
		verify.str(luaFieldKeyring, &cfg.Verify.Keyring)
		verify.warnUnknown(p.logger, luaFieldChecksumURL, luaFieldSigURL, luaFieldKeyring)
		f.errs = append(f.errs, verify.errs...)
	}
	if download, ok := f.sub(luaFieldDownload); ok {
		download.integer(luaFieldRetries, &cfg.Download.Retries)
		download.warnUnknown(p.logger, luaFieldRetries)
		f.errs = append(f.errs, download.errs...)
	}

	f.warnUnknown(p.logger,
		luaFieldVersion, luaFieldCacheDir, luaFieldURLTemplate, luaFieldNestedDir,
		luaFieldArgs, luaFieldWatch, luaFieldSkip, luaFieldVerify, luaFieldDownload)

	if err := errors.Join(f.errs...); err != nil {
		return nil, &ParseError{Message: "invalid 'sass' table", Detail: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// fields reads typed values out of one Lua table, collecting type errors.
// A nil field leaves the target untouched.
type fields struct {
	table  *lua.LTable
	prefix string
	errs   []error
}

func (f *fields) get(name string, want lua.LValueType) (lua.LValue, bool) {
	v := f.table.RawGetString(name)
	if v.Type() == lua.LTNil {
		return nil, false
	}
	if v.Type() != want {
		f.errs = append(f.errs, fmt.Errorf("%s.%s: expected %s, got %s", f.prefix, name, want, v.Type()))
		return nil, false
	}
	return v, true
}

func (f *fields) str(name string, dst *string) {
	if v, ok := f.get(name, lua.LTString); ok {
		*dst = v.String()
	}
}

func (f *fields) boolean(name string, dst *bool) {
	if v, ok := f.get(name, lua.LTBool); ok {
		*dst = bool(v.(lua.LBool))
	}
}

func (f *fields) integer(name string, dst *int) {
	v, ok := f.get(name, lua.LTNumber)
	if !ok {
		return
	}
	n := float64(lua.LVAsNumber(v))
	if n != float64(int(n)) {
		f.errs = append(f.errs, fmt.Errorf("%s.%s: expected integer, got %v", f.prefix, name, n))
		return
	}
	*dst = int(n)
}

// list reads an array of strings in index order. Nil entries left by platform
// conditionals (platform.is_windows and "x" or nil) are skipped; numbers are
// converted. Keys other than positive integers are errors.
func (f *fields) list(name string, dst *[]string) {
	v, ok := f.get(name, lua.LTTable)
	if !ok {
		return
	}
	table := v.(*lua.LTable)

	maxN, valid := 0, true
	table.ForEach(func(key, _ lua.LValue) {
		n, isNum := key.(lua.LNumber)
		if !isNum || n < 1 || float64(n) != float64(int(n)) {
			f.errs = append(f.errs, fmt.Errorf("%s.%s: unexpected key %s, expected a list", f.prefix, name, key))
			valid = false
			return
		}
		maxN = max(maxN, int(n))
	})
	if !valid {
		return
	}

	var out []string
	for i := 1; i <= maxN; i++ {
		value := table.RawGetInt(i)
		switch value.Type() {
		case lua.LTNil:
		case lua.LTString, lua.LTNumber:
			out = append(out, value.String())
		default:
			f.errs = append(f.errs, fmt.Errorf("%s.%s[%d]: expected string, got %s", f.prefix, name, i, value.Type()))
		}
	}
	*dst = out
}

func (f *fields) sub(name string) (*fields, bool) {
	v, ok := f.get(name, lua.LTTable)
	if !ok {
		return nil, false
	}
	return &fields{table: v.(*lua.LTable), prefix: f.prefix + "." + name}, true
}

// warnUnknown logs every key not in known.
func (f *fields) warnUnknown(logger logging.Logger, known ...string) {
	f.table.ForEach(func(key, _ lua.LValue) {
		name := key.String()
		for _, k := range known {
			if name == k {
				return
			}
		}
		logger.Warn("unknown config field", "field", f.prefix+"."+name)
	})
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
