package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor handles archive extraction. Extraction always overwrites files that
// already exist at the destination, so re-extracting over a partial or stale
// entry converges on the archive contents.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract dispatches on kind. Every failure wraps ErrExtraction.
func (e *Extractor) Extract(kind ArchiveKind, archivePath, destDir string) error {
	var err error
	switch kind {
	case ArchiveZip:
		err = e.ExtractZip(archivePath, destDir)
	case ArchiveTarGz:
		err = e.ExtractTarGz(archivePath, destDir)
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedArchive, kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return nil
}

// ExtractTarGz extracts a .tar.gz archive to a destination directory
func (e *Extractor) ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(target, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := checkLink(destDir, target, header.Linkname); err != nil {
				return err
			}
			if err := writeSymlink(target, header.Linkname); err != nil {
				return err
			}

		default:
			// Skip other types (hard links, devices, fifos)
			continue
		}
	}

	return nil
}

// ExtractZip extracts a .zip archive to a destination directory
func (e *Extractor) ExtractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, file := range reader.File {
		target, err := safeJoin(destDir, file.Name)
		if err != nil {
			return err
		}

		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(file)
			if err != nil {
				return err
			}
			if err := checkLink(destDir, target, linkname); err != nil {
				return err
			}
			if err := writeSymlink(target, linkname); err != nil {
				return err
			}

		default:
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", file.Name, err)
			}
			err = writeFile(target, rc, mode.Perm())
			rc.Close()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// safeJoin joins an archive entry name onto destDir, rejecting names that
// would land outside of it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(filepath.Clean(destDir), filepath.FromSlash(name))
	if !within(destDir, target) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}

// checkLink rejects symlinks that are absolute or resolve outside destDir.
func checkLink(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("illegal symlink target: %s -> %s", target, linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !within(destDir, resolved) {
		return fmt.Errorf("illegal symlink target: %s -> %s", target, linkname)
	}
	return nil
}

func within(dir, path string) bool {
	cleanDir := filepath.Clean(dir)
	return path == cleanDir || strings.HasPrefix(path, cleanDir+string(os.PathSeparator))
}

// writeFile replaces target with the contents of r and sets perm exactly,
// independent of the process umask. Archives that carry no permission bits
// get 0644.
func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	// Removing first lets us overwrite read-only files, running executables
	// and symlinks without writing through them.
	if err := removeExisting(target); err != nil {
		return err
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}

	if err := os.Chmod(target, perm); err != nil {
		return fmt.Errorf("set mode on %s: %w", target, err)
	}

	return nil
}

func writeSymlink(target, linkname string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	if err := removeExisting(target); err != nil {
		return err
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}

// removeExisting deletes a file or symlink at path. Directories are left
// alone; a non-empty directory in the way surfaces as an error.
func removeExisting(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot replace directory %s with a file", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func readZipEntry(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read zip entry %s: %w", file.Name, err)
	}
	return string(data), nil
}
