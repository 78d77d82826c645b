package binary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ReceiptFile is the name of the install receipt inside an entry directory.
const ReceiptFile = ".sassrun-receipt.yaml"

// Receipt records where a cache entry came from. It is informational only;
// the cache-hit decision never reads it.
type Receipt struct {
	Tool        string    `yaml:"tool"`
	Version     string    `yaml:"version"`
	OS          string    `yaml:"os"`
	Arch        string    `yaml:"arch"`
	URL         string    `yaml:"url"`
	SHA256      string    `yaml:"sha256,omitempty"`
	Verified    string    `yaml:"verified,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// NewReceipt builds the receipt for entry after a fetch.
func NewReceipt(tool string, entry *Entry, result *FetchResult, now time.Time) *Receipt {
	r := &Receipt{
		Tool:        tool,
		Version:     entry.Version,
		OS:          entry.OSToken,
		Arch:        entry.ArchToken,
		URL:         entry.URL,
		InstalledAt: now.UTC(),
	}
	if result != nil {
		r.SHA256 = result.SHA256
		r.Verified = result.Verified.String()
	}
	return r
}

// WriteReceipt atomically writes r into dir.
func WriteReceipt(dir string, r *Receipt) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	target := filepath.Join(dir, ReceiptFile)
	tmp, err := os.CreateTemp(dir, ReceiptFile+".*")
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close receipt: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt: %w", err)
	}
	return nil
}

// ReadReceipt reads the receipt in dir.
func ReadReceipt(dir string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReceiptFile))
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse receipt in %s: %w", dir, err)
	}
	return &r, nil
}

// CachedEntry is one directory found below the cache root.
type CachedEntry struct {
	Name string
	Path string
	// Receipt is nil when the entry has none (interrupted or foreign install).
	Receipt *Receipt
}

// List returns the entries below the locator root, sorted by name. A missing
// root yields an empty list.
func (l *Locator) List() ([]CachedEntry, error) {
	dirents, err := os.ReadDir(l.Root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var entries []CachedEntry
	for _, d := range dirents {
		if !d.IsDir() || !strings.HasPrefix(d.Name(), l.Tool+"-") || strings.Contains(d.Name(), StagingMarker) {
			continue
		}
		dir := filepath.Join(l.Root, d.Name())
		receipt, err := ReadReceipt(dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		entries = append(entries, CachedEntry{Name: d.Name(), Path: dir, Receipt: receipt})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Clean removes every entry directory and lock file below the root, then the
// root itself if nothing else is left in it. Unrelated files are kept.
func (l *Locator) Clean() (removed []string, err error) {
	if err := checkCleanRoot(l.Root); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(l.Root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	for _, d := range dirents {
		name := d.Name()
		if !strings.HasPrefix(name, l.Tool+"-") {
			continue
		}
		if !d.IsDir() && !strings.HasSuffix(name, ".lock") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(l.Root, name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}

	// Fails harmlessly when unrelated files remain.
	_ = os.Remove(l.Root)
	return removed, nil
}

// checkCleanRoot refuses to clean filesystem roots and the home directory.
func checkCleanRoot(root string) error {
	clean := filepath.Clean(root)
	if clean == "" || clean == "." || clean == filepath.VolumeName(clean)+string(os.PathSeparator) {
		return fmt.Errorf("refusing to clean cache root %q", root)
	}
	if home, err := homedir.Dir(); err == nil && filepath.Clean(home) == clean {
		return fmt.Errorf("refusing to clean home directory %q", root)
	}
	return nil
}
