// Package binary locates, downloads and unpacks the Dart Sass release that
// sassrun runs.
//
// # Cache layout
//
// Every (tool, version, os, arch) tuple gets its own directory below the cache
// root, so different versions and platforms never share files:
//
//	<root>/dart-sass-1.62.0-linux-x64/dart-sass/sass
//	<root>/dart-sass-1.62.0-linux-x64/.sassrun-receipt.yaml
//
// The presence of the executable is the only cache-hit signal. Receipts are
// informational and feed "sassrun cache list".
//
// # Fetching
//
// Fetcher downloads a release archive into a uniquely named temporary file,
// optionally verifies it (SHA-256 checksum file and/or detached OpenPGP
// signature), then extracts it over the entry directory. The temporary file is
// removed on every exit path. Only ".zip" and ".tar.gz" archives are supported,
// and the kind is decided from the URL before any network access.
//
// # Architecture
//
//   - Locator: template expansion and cache paths
//   - Fetcher: temp-file lifecycle, download, verification, extraction
//   - Downloader: HTTP GET with optional retries
//   - Extractor: zip and tar.gz extraction preserving permission bits
//   - Verifier: SHA-256 and OpenPGP verification
package binary
