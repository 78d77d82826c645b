package binary

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/platform"
)

// Template placeholders understood by ExpandTemplate.
const (
	PlaceholderVersion          = "{version}"
	PlaceholderSassVersion      = "{sassVersion}"
	PlaceholderOS               = "{os}"
	PlaceholderArch             = "{arch}"
	PlaceholderArchiveExtension = "{archiveExtension}"
)

const (
	// DefaultURLTemplate points at the official Dart Sass GitHub releases.
	DefaultURLTemplate = "https://github.com/sass/dart-sass/releases/download/{version}/dart-sass-{version}-{os}-{arch}.{archiveExtension}"
	// DefaultVersion is the Dart Sass release used when none is configured.
	DefaultVersion = "1.62.0"
	// DefaultTool prefixes every cache entry directory.
	DefaultTool = "dart-sass"
	// DefaultNestedDirectory is the directory inside the archive holding the launcher.
	DefaultNestedDirectory = "dart-sass"
	// DefaultExecutable is the launcher base name, without platform suffix.
	DefaultExecutable = "sass"
)

// Release identifies one downloadable tool version.
type Release struct {
	Version     string
	URLTemplate string
}

// Entry is the cache location of a release on one platform. It is computed
// fresh on every call; the directory it points at is the actual cache.
type Entry struct {
	Name           string // dart-sass-<version>-<os>-<arch>
	RootDir        string
	ExtractDir     string
	ExecutablePath string
	URL            string
	Version        string
	OSToken        string
	ArchToken      string
}

// Installed reports whether the entry's executable path exists. This is the
// only cache-hit signal; a partially extracted entry without the launcher is a
// miss and gets extracted again.
func (e *Entry) Installed() bool {
	_, err := os.Stat(e.ExecutablePath)
	return err == nil
}

// Locator computes cache entries below a root directory.
type Locator struct {
	Root       string
	Nested     string
	Tool       string
	Executable string
}

// DefaultRoot returns the default cache root, ~/.sassrun/cache.
func DefaultRoot() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".sassrun", "cache"), nil
}

// NewLocator creates a Locator. An empty root selects DefaultRoot, a leading
// "~" is expanded, and an empty nested directory selects DefaultNestedDirectory.
func NewLocator(root, nested string) (*Locator, error) {
	if root == "" {
		var err error
		root, err = DefaultRoot()
		if err != nil {
			return nil, err
		}
	}

	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("expand cache root %q: %w", root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root %q: %w", root, err)
	}

	if nested == "" {
		nested = DefaultNestedDirectory
	}

	return &Locator{
		Root:       abs,
		Nested:     nested,
		Tool:       DefaultTool,
		Executable: DefaultExecutable,
	}, nil
}

// ExpandTemplate replaces the placeholders in tpl. {sassVersion} is an alias
// of {version}. It is a literal
// find-and-replace: anything else in the template, including other braces,
// is left untouched.
func ExpandTemplate(tpl, version string, desc platform.Descriptor) (string, error) {
	osToken, err := platform.OSToken(desc.OS)
	if err != nil {
		return "", err
	}
	archToken, err := platform.ArchToken(desc.Arch)
	if err != nil {
		return "", err
	}

	r := strings.NewReplacer(
		PlaceholderVersion, version,
		PlaceholderSassVersion, version,
		PlaceholderOS, osToken,
		PlaceholderArch, archToken,
		PlaceholderArchiveExtension, platform.ArchiveExtension(desc.OS),
	)
	return r.Replace(tpl), nil
}

// ExpandURL expands tpl and checks that the result is an absolute http(s) URL.
func ExpandURL(tpl, version string, desc platform.Descriptor) (string, error) {
	expanded, err := ExpandTemplate(tpl, version, desc)
	if err != nil {
		return "", err
	}
	if err := validateURL(expanded); err != nil {
		return "", err
	}
	return expanded, nil
}

// Resolve computes the cache entry and download URL of a release.
func (l *Locator) Resolve(rel Release, desc platform.Descriptor) (*Entry, error) {
	if strings.TrimSpace(rel.Version) == "" {
		return nil, fmt.Errorf("version is required")
	}

	osToken, err := platform.OSToken(desc.OS)
	if err != nil {
		return nil, err
	}
	archToken, err := platform.ArchToken(desc.Arch)
	if err != nil {
		return nil, err
	}

	tpl := rel.URLTemplate
	if tpl == "" {
		tpl = DefaultURLTemplate
	}
	downloadURL, err := ExpandURL(tpl, rel.Version, desc)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s-%s-%s-%s", l.Tool, rel.Version, osToken, archToken)
	extractDir := filepath.Join(l.Root, name)
	executable := l.Executable + platform.ExecutableSuffix(desc.OS)

	return &Entry{
		Name:           name,
		RootDir:        l.Root,
		ExtractDir:     extractDir,
		ExecutablePath: filepath.Join(extractDir, filepath.FromSlash(l.Nested), executable),
		URL:            downloadURL,
		Version:        rel.Version,
		OSToken:        osToken,
		ArchToken:      archToken,
	}, nil
}

// validateURL rejects anything that is not an absolute http(s) URL with a host.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrMalformedURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrMalformedURL, raw)
	}
	return nil
}
