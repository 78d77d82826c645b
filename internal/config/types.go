package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/binary"
)

// Config is the resolved sassrun configuration.
type Config struct {
	// Dart Sass release to run
	Version string `yaml:"version"`

	// Cache root; empty selects binary.DefaultRoot
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Download URL with {version} (or {sassVersion}), {os}, {arch} and {archiveExtension}
	URLTemplate string `yaml:"url_template"`

	// Directory inside the archive that holds the launcher
	NestedDir string `yaml:"nested_dir"`

	// Arguments passed to sass
	Args []string `yaml:"args,omitempty"`

	Watch bool `yaml:"watch,omitempty"`
	Skip  bool `yaml:"skip,omitempty"`

	Verify   VerifyConfig   `yaml:"verify,omitempty"`
	Download DownloadConfig `yaml:"download,omitempty"`
}

// VerifyConfig holds the optional archive verification sources. The URLs are
// templates expanded like URLTemplate.
type VerifyConfig struct {
	ChecksumURL  string `yaml:"checksum_url,omitempty"`
	SignatureURL string `yaml:"signature_url,omitempty"`
	Keyring      string `yaml:"keyring,omitempty"`
}

// DownloadConfig tunes the archive download.
type DownloadConfig struct {
	Retries int `yaml:"retries,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:     binary.DefaultVersion,
		URLTemplate: binary.DefaultURLTemplate,
		NestedDir:   binary.DefaultNestedDirectory,
	}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if err := validateVersion(c.Version); err != nil {
		return &ValidationError{Field: luaFieldVersion, Message: err.Error()}
	}

	if strings.TrimSpace(c.URLTemplate) == "" {
		return &ValidationError{Field: luaFieldURLTemplate, Message: "cannot be empty"}
	}
	if err := binary.CheckTemplateExtension(c.URLTemplate); err != nil {
		return &ValidationError{
			Field: luaFieldURLTemplate,
			Message: fmt.Sprintf("path must end in %s, .zip or .tar.gz (placeholders: %s or %s, %s, %s)",
				binary.PlaceholderArchiveExtension, binary.PlaceholderVersion, binary.PlaceholderSassVersion,
				binary.PlaceholderOS, binary.PlaceholderArch),
		}
	}

	if err := validateNestedDir(c.NestedDir); err != nil {
		return &ValidationError{Field: luaFieldNestedDir, Message: err.Error()}
	}

	if len(c.Args) > MaxArgCount {
		return &ValidationError{
			Field:   luaFieldArgs,
			Message: fmt.Sprintf("too many arguments (%d), maximum is %d", len(c.Args), MaxArgCount),
		}
	}

	if c.Verify.SignatureURL != "" && c.Verify.Keyring == "" {
		return &ValidationError{Field: "verify.keyring", Message: "required when signature_url is set"}
	}

	if c.Download.Retries < 0 || c.Download.Retries > MaxRetries {
		return &ValidationError{
			Field:   "download.retries",
			Message: fmt.Sprintf("must be between 0 and %d (got %d)", MaxRetries, c.Download.Retries),
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// versionPattern keeps versions usable as a path segment.
var versionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._+-]*$`)

func validateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("cannot be empty")
	}
	if len(version) > 64 {
		return fmt.Errorf("too long (%d chars, max 64)", len(version))
	}
	if !versionPattern.MatchString(version) || strings.Contains(version, "..") {
		return fmt.Errorf("invalid version %q", version)
	}
	return nil
}

// validateNestedDir keeps the launcher inside its cache entry.
func validateNestedDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("cannot be empty")
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") {
		return fmt.Errorf("must be relative: %s", dir)
	}
	for _, part := range strings.FieldsFunc(dir, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed: %s", dir)
		}
	}
	return nil
}
