package binary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/ZebulonRouseFrantzich/sassrun/internal/testutil"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *recordingLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {}
func (l *recordingLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func newTestFetcher(t *testing.T, cfg FetcherConfig) (*Fetcher, string) {
	t.Helper()
	if cfg.TempDir == "" {
		cfg.TempDir = t.TempDir()
	}
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return f, cfg.TempDir
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	if left := testutil.TempEntries(t, dir); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

func TestFetchAndExtract(t *testing.T) {
	release := testutil.SassRelease("sass", 0)

	for _, b := range archiveBuilders {
		t.Run(b.name, func(t *testing.T) {
			srv := testutil.NewReleaseServer(t)
			path := "/1.62.0/dart-sass-1.62.0-linux-x64" + b.kind.Extension()
			srv.Serve(path, b.build(t, release))

			fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
			destDir := filepath.Join(t.TempDir(), "dart-sass-1.62.0-linux-x64")

			if err := fetcher.FetchAndExtract(context.Background(), srv.URL+path, destDir); err != nil {
				t.Fatalf("FetchAndExtract() error = %v", err)
			}

			launcher := filepath.Join(destDir, "dart-sass", "sass")
			info, err := os.Stat(launcher)
			if err != nil {
				t.Fatalf("launcher not extracted: %v", err)
			}
			if runtime.GOOS != "windows" && info.Mode().Perm() != 0755 {
				t.Errorf("launcher mode = %o, want 755", info.Mode().Perm())
			}
			if _, err := os.Stat(filepath.Join(destDir, "dart-sass", "src", "LICENSE")); err != nil {
				t.Errorf("support file not extracted: %v", err)
			}

			if got := srv.Hits(path); got != 1 {
				t.Errorf("server hits = %d, want 1", got)
			}
			assertNoTempFiles(t, tempDir)
		})
	}
}

func TestFetch_ReturnsDigest(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	body := testutil.TarGz(t, testutil.SassRelease("sass", 0))
	srv.Serve("/a.tar.gz", body)

	fetcher, _ := newTestFetcher(t, FetcherConfig{})
	result, err := fetcher.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/a.tar.gz", DestDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	sum := sha256.Sum256(body)
	if result.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("SHA256 = %s, want %x", result.SHA256, sum)
	}
	if result.Kind != ArchiveTarGz {
		t.Errorf("Kind = %v, want %v", result.Kind, ArchiveTarGz)
	}
	if result.Verified != VerificationNone {
		t.Errorf("Verified = %v, want None", result.Verified)
	}
}

func TestFetch_UnsupportedExtensionMakesNoRequest(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	srv.Serve("/dart-sass.tgz", []byte("whatever"))

	fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
	destDir := filepath.Join(t.TempDir(), "entry")

	err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/dart-sass.tgz", destDir)
	if !errors.Is(err, ErrUnsupportedArchive) {
		t.Fatalf("expected ErrUnsupportedArchive, got: %v", err)
	}

	if got := srv.TotalHits(); got != 0 {
		t.Errorf("server hits = %d, want 0", got)
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Error("destination should not be created for an unsupported archive")
	}
	assertNoTempFiles(t, tempDir)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		serve   bool
		body    []byte
		wantErr error
	}{
		{name: "not_found", serve: false, wantErr: ErrDownload},
		{name: "corrupt_archive", serve: true, body: []byte("definitely not gzip"), wantErr: ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewReleaseServer(t)
			if tt.serve {
				srv.Serve("/a.tar.gz", tt.body)
			}

			fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
			err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/a.tar.gz", t.TempDir())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
			assertNoTempFiles(t, tempDir)
		})
	}
}

func TestFetch_TruncatedArchiveLeavesNoEntry(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	body := testutil.TarGz(t, testutil.SassRelease("sass", 0))
	srv.Serve("/a.tar.gz", body[:len(body)*2/3])

	fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
	root := t.TempDir()
	destDir := filepath.Join(root, "dart-sass-1.62.0-linux-x64")

	err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/a.tar.gz", destDir)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got: %v", err)
	}
	if left := testutil.TempEntries(t, root); len(left) != 0 {
		t.Errorf("nothing should be left in the cache root, found %v", left)
	}
	assertNoTempFiles(t, tempDir)
}

func TestFetch_ReplacesExistingEntry(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	srv.Serve("/a.tar.gz", testutil.TarGz(t, testutil.SassRelease("sass", 0)))

	fetcher, _ := newTestFetcher(t, FetcherConfig{})
	root := t.TempDir()
	destDir := filepath.Join(root, "dart-sass-1.62.0-linux-x64")
	stale := filepath.Join(destDir, "dart-sass", "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/a.tar.gz", destDir); err != nil {
		t.Fatalf("FetchAndExtract() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("previous entry contents should be replaced")
	}
	if _, err := os.Stat(filepath.Join(destDir, "dart-sass", "sass")); err != nil {
		t.Errorf("launcher missing: %v", err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(destDir)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0755 {
			t.Errorf("entry mode = %o, want 755", info.Mode().Perm())
		}
	}
	if left := testutil.TempEntries(t, root); len(left) != 1 {
		t.Errorf("cache root entries = %v, want only the entry", left)
	}
}

func TestFetch_Cancelled(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	srv.Serve("/a.zip", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
	err := fetcher.FetchAndExtract(ctx, srv.URL+"/a.zip", t.TempDir())
	if !errors.Is(err, ErrDownload) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrDownload wrapping context.Canceled, got: %v", err)
	}
	assertNoTempFiles(t, tempDir)
}

func TestFetch_ChecksumVerification(t *testing.T) {
	body := testutil.TarGz(t, testutil.SassRelease("sass", 0))
	sum := sha256.Sum256(body)
	good := fmt.Sprintf("%x  dart-sass-1.62.0-linux-x64.tar.gz\n", sum)
	bad := fmt.Sprintf("%064d  dart-sass-1.62.0-linux-x64.tar.gz\n", 0)

	tests := []struct {
		name     string
		checksum string
		wantErr  bool
	}{
		{name: "match", checksum: good},
		{name: "mismatch", checksum: bad, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewReleaseServer(t)
			srv.Serve("/dart-sass-1.62.0-linux-x64.tar.gz", body)
			srv.Serve("/dart-sass-1.62.0-linux-x64.tar.gz.sha256", []byte(tt.checksum))

			fetcher, tempDir := newTestFetcher(t, FetcherConfig{})
			destDir := filepath.Join(t.TempDir(), "entry")

			result, err := fetcher.Fetch(context.Background(), FetchRequest{
				URL:         srv.URL + "/dart-sass-1.62.0-linux-x64.tar.gz",
				ChecksumURL: srv.URL + "/dart-sass-1.62.0-linux-x64.tar.gz.sha256",
				DestDir:     destDir,
			})

			if tt.wantErr {
				if !errors.Is(err, ErrVerification) {
					t.Fatalf("expected ErrVerification, got: %v", err)
				}
				if _, statErr := os.Stat(filepath.Join(destDir, "dart-sass", "sass")); !os.IsNotExist(statErr) {
					t.Error("archive should not be extracted after a failed verification")
				}
			} else {
				if err != nil {
					t.Fatalf("Fetch() error = %v", err)
				}
				if result.Verified != VerificationSHA256 {
					t.Errorf("Verified = %v, want SHA256", result.Verified)
				}
			}
			assertNoTempFiles(t, tempDir)
		})
	}
}

func TestFetch_SignatureVerification(t *testing.T) {
	signer := newTestSigner(t)

	body := testutil.Zip(t, testutil.SassRelease("sass.bat", 0))
	archive := writeTestFile(t, t.TempDir(), "dart-sass.zip", string(body))
	armoredSig, _ := signer.sign(t, archive)
	sig, err := os.ReadFile(armoredSig)
	if err != nil {
		t.Fatal(err)
	}

	srv := testutil.NewReleaseServer(t)
	srv.Serve("/dart-sass.zip", body)
	srv.Serve("/dart-sass.zip.asc", sig)
	srv.Serve("/tampered.zip", append(append([]byte{}, body...), 0))

	fetcher, tempDir := newTestFetcher(t, FetcherConfig{KeyringPath: signer.armoredKeyring})

	result, err := fetcher.Fetch(context.Background(), FetchRequest{
		URL:          srv.URL + "/dart-sass.zip",
		SignatureURL: srv.URL + "/dart-sass.zip.asc",
		DestDir:      t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Verified != VerificationGPG {
		t.Errorf("Verified = %v, want GPG", result.Verified)
	}

	_, err = fetcher.Fetch(context.Background(), FetchRequest{
		URL:          srv.URL + "/tampered.zip",
		SignatureURL: srv.URL + "/dart-sass.zip.asc",
		DestDir:      t.TempDir(),
	})
	if !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification for tampered archive, got: %v", err)
	}

	assertNoTempFiles(t, tempDir)
}

func TestFetch_CleanupFailureIsOnlyAWarning(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	srv.Serve("/a.tar.gz", testutil.TarGz(t, testutil.SassRelease("sass", 0)))

	logger := &recordingLogger{}
	fetcher, _ := newTestFetcher(t, FetcherConfig{Logger: logger})
	fetcher.removeFile = func(string) error { return errors.New("device busy") }

	if err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/a.tar.gz", t.TempDir()); err != nil {
		t.Fatalf("FetchAndExtract() error = %v, want success despite cleanup failure", err)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want exactly one", logger.warns)
	}
}

func TestFetch_CleanupFailureKeepsOriginalError(t *testing.T) {
	srv := testutil.NewReleaseServer(t)
	srv.Serve("/a.tar.gz", []byte("corrupt"))

	fetcher, _ := newTestFetcher(t, FetcherConfig{Logger: &recordingLogger{}})
	fetcher.removeFile = func(string) error { return errors.New("device busy") }

	err := fetcher.FetchAndExtract(context.Background(), srv.URL+"/a.tar.gz", t.TempDir())
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got: %v", err)
	}
}

func TestArchiveName(t *testing.T) {
	tests := map[string]string{
		"https://h/releases/download/1.62.0/dart-sass-1.62.0-linux-x64.tar.gz": "dart-sass-1.62.0-linux-x64.tar.gz",
		"https://h/a.zip?x=1": "a.zip",
	}
	for in, want := range tests {
		if got := archiveName(in); got != want {
			t.Errorf("archiveName(%q) = %q, want %q", in, got, want)
		}
	}
}
