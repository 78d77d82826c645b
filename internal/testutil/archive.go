package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// ArchiveFile is one entry of a test archive.
type ArchiveFile struct {
	Name string
	Body string
	Mode os.FileMode // permission bits; 0 means 0644 (0755 for directories)
	Dir  bool
	Link string // symlink target when non-empty
}

// TarGz builds a gzip-compressed tar archive in memory.
func TarGz(t *testing.T, files []ArchiveFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, f := range files {
		header := &tar.Header{Name: f.Name, Mode: int64(fileMode(f))}
		switch {
		case f.Dir:
			header.Typeflag = tar.TypeDir
		case f.Link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = f.Link
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(f.Body))
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", f.Name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tarWriter.Write([]byte(f.Body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", f.Name, err)
			}
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// Zip builds a ZIP archive in memory.
func Zip(t *testing.T, files []ArchiveFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for _, f := range files {
		header := &zip.FileHeader{Name: f.Name, Method: zip.Deflate}
		body := f.Body
		switch {
		case f.Dir:
			header.SetMode(os.ModeDir | fileMode(f))
			if len(header.Name) > 0 && header.Name[len(header.Name)-1] != '/' {
				header.Name += "/"
			}
			body = ""
		case f.Link != "":
			header.SetMode(os.ModeSymlink | 0777)
			body = f.Link
		default:
			header.SetMode(fileMode(f))
		}

		w, err := zipWriter.CreateHeader(header)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", f.Name, err)
		}
		if body != "" {
			if _, err := w.Write([]byte(body)); err != nil {
				t.Fatalf("failed to write zip entry %s: %v", f.Name, err)
			}
		}
	}

	if err := zipWriter.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

// WriteArchive writes data to dir/name and returns the path.
func WriteArchive(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write archive %s: %v", path, err)
	}
	return path
}

// SassScript returns a POSIX shell launcher that prints each argument on its
// own line and exits with exitCode.
func SassScript(exitCode int) string {
	return fmt.Sprintf("#!/bin/sh\nfor a in \"$@\"; do printf '%%s\\n' \"$a\"; done\nexit %d\n", exitCode)
}

// SassRelease returns the entries of a minimal Dart Sass release whose
// launcher lives at dart-sass/<executable>.
func SassRelease(executable string, exitCode int) []ArchiveFile {
	return []ArchiveFile{
		{Name: "dart-sass/", Dir: true},
		{Name: "dart-sass/" + executable, Body: SassScript(exitCode), Mode: 0o755},
		{Name: "dart-sass/src/", Dir: true},
		{Name: "dart-sass/src/LICENSE", Body: "MIT\n", Mode: 0o644},
	}
}

func fileMode(f ArchiveFile) os.FileMode {
	if f.Mode != 0 {
		return f.Mode
	}
	if f.Dir {
		return 0o755
	}
	return 0o644
}
