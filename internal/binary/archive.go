package binary

import (
	"fmt"
	"net/url"
	"strings"
)

// ArchiveKind is a supported release archive format.
type ArchiveKind int

const (
	// ArchiveZip is a ZIP archive.
	ArchiveZip ArchiveKind = iota + 1
	// ArchiveTarGz is a gzip-compressed tar archive.
	ArchiveTarGz
)

// String returns the file extension of the kind, with its leading dot.
func (k ArchiveKind) String() string {
	switch k {
	case ArchiveZip:
		return ".zip"
	case ArchiveTarGz:
		return ".tar.gz"
	default:
		return "unknown"
	}
}

// Extension is an alias of String, for use in file names.
func (k ArchiveKind) Extension() string {
	return k.String()
}

// KindFromURL decides the archive kind from the trailing extension of a URL's
// path. Query strings and fragments are ignored; the match is exact and
// case-sensitive, as release hosts serve these names verbatim.
func KindFromURL(rawURL string) (ArchiveKind, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	return kindFromName(u.Path)
}

// CheckTemplateExtension reports whether a URL template names a supported
// archive. Like KindFromURL it looks only at the part before any query string
// or fragment, which must end in {archiveExtension}, .zip or .tar.gz.
func CheckTemplateExtension(tpl string) error {
	path, _, _ := strings.Cut(tpl, "?")
	path, _, _ = strings.Cut(path, "#")
	if strings.HasSuffix(path, PlaceholderArchiveExtension) {
		return nil
	}
	_, err := kindFromName(path)
	return err
}

func kindFromName(name string) (ArchiveKind, error) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return ArchiveZip, nil
	case strings.HasSuffix(name, ".tar.gz"):
		return ArchiveTarGz, nil
	default:
		return 0, fmt.Errorf("%w: %q (want .zip or .tar.gz)", ErrUnsupportedArchive, name)
	}
}
