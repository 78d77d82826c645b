package binary

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/logging"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Retries is the number of extra download attempts (default 0).
	Retries int
	// TempDir holds the transient archive; empty means os.TempDir().
	TempDir string
	// KeyringPath enables OpenPGP signature verification when set.
	KeyringPath string
	// Logger receives progress and cleanup warnings. Nil means no logging.
	Logger logging.Logger
}

// FetchRequest describes one archive to download and unpack.
type FetchRequest struct {
	URL     string
	DestDir string
	// ChecksumURL, when set, points at a sha256sum-style file listing the archive.
	ChecksumURL string
	// SignatureURL, when set, points at a detached OpenPGP signature of the archive.
	SignatureURL string
}

// FetchResult describes a completed fetch.
type FetchResult struct {
	Kind     ArchiveKind
	SHA256   string
	Verified VerificationMethod
}

// Fetcher downloads release archives and extracts them into cache entries.
type Fetcher struct {
	downloader *Downloader
	extractor  *Extractor
	verifier   *Verifier
	tempDir    string
	logger     logging.Logger

	// removeFile deletes the temporary archive. Replaced in tests.
	removeFile func(string) error
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	verifier, err := NewVerifier(cfg.KeyringPath)
	if err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}

	return &Fetcher{
		downloader: NewDownloader(cfg.Retries),
		extractor:  NewExtractor(),
		verifier:   verifier,
		tempDir:    cfg.TempDir,
		logger:     logging.OrNop(cfg.Logger),
		removeFile: os.Remove,
	}, nil
}

// FetchAndExtract downloads rawURL and extracts it into destDir.
func (f *Fetcher) FetchAndExtract(ctx context.Context, rawURL, destDir string) error {
	_, err := f.Fetch(ctx, FetchRequest{URL: rawURL, DestDir: destDir})
	return err
}

// StagingMarker separates an entry name from the random suffix of its staging
// directory.
const StagingMarker = ".staging-"

// Fetch downloads req.URL into a temporary file, verifies it when requested and
// extracts it into a staging directory next to req.DestDir. Only a complete
// extraction is renamed onto req.DestDir, replacing any previous contents. The
// archive kind is decided from the URL before any network access. The
// temporary file and the staging directory are removed on every path.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	kind, err := KindFromURL(req.URL)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(f.tempDir, "archive-*"+kind.Extension())
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", ErrDownload, err)
	}
	archivePath := tmp.Name()
	tmp.Close()

	var extras []string
	defer func() {
		for _, p := range append([]string{archivePath}, extras...) {
			if rmErr := f.removeFile(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				f.logger.Warn("failed to remove temporary file", "path", p, "error", rmErr)
			}
		}
	}()

	parent := filepath.Dir(req.DestDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("%w: create destination %s: %w", ErrDownload, parent, err)
	}

	f.logger.Debug("downloading archive", "url", req.URL, "temp", archivePath)
	if err := f.downloader.DownloadToFile(ctx, req.URL, archivePath); err != nil {
		return nil, err
	}

	verified, err := f.verify(ctx, req, archivePath, &extras)
	if err != nil {
		return nil, err
	}

	sum, err := calculateSHA256(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: hash archive: %w", ErrDownload, err)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(req.DestDir)+StagingMarker+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %w", ErrExtraction, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			f.logger.Warn("failed to remove staging directory", "path", staging, "error", rmErr)
		}
	}()

	f.logger.Debug("extracting archive", "kind", kind.String(), "staging", staging)
	if err := f.extractor.Extract(kind, archivePath, staging); err != nil {
		return nil, err
	}
	if err := promote(staging, req.DestDir); err != nil {
		return nil, err
	}

	f.logger.Info("installed archive", "url", req.URL, "dest", req.DestDir, "sha256", sum,
		"verified", verified.String())

	return &FetchResult{Kind: kind, SHA256: sum, Verified: verified}, nil
}

// promote moves a completed staging directory onto dest.
func promote(staging, dest string) error {
	if err := os.Chmod(staging, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("%w: remove previous %s: %w", ErrExtraction, dest, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("%w: move into place: %w", ErrExtraction, err)
	}
	return nil
}

// verify runs the checks configured on req. Auxiliary downloads are recorded in
// extras so the caller removes them together with the archive.
func (f *Fetcher) verify(ctx context.Context, req FetchRequest, archivePath string, extras *[]string) (VerificationMethod, error) {
	method := VerificationNone

	if req.ChecksumURL != "" {
		checksumPath := archivePath + ".sha256"
		*extras = append(*extras, checksumPath)
		if err := f.downloader.DownloadToFile(ctx, req.ChecksumURL, checksumPath); err != nil {
			return method, err
		}
		if err := f.verifier.VerifyChecksum(archivePath, checksumPath, archiveName(req.URL)); err != nil {
			return method, err
		}
		method |= VerificationSHA256
	}

	if req.SignatureURL != "" {
		signaturePath := archivePath + ".sig"
		*extras = append(*extras, signaturePath)
		if err := f.downloader.DownloadToFile(ctx, req.SignatureURL, signaturePath); err != nil {
			return method, err
		}
		if err := f.verifier.VerifySignature(archivePath, signaturePath); err != nil {
			return method, err
		}
		method |= VerificationGPG
	}

	return method, nil
}

// archiveName is the file name a checksum file lists for the archive at rawURL.
func archiveName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	return path.Base(name)
}
