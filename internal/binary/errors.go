package binary

import "errors"

// Failure kinds reported by the cache locator and the archive fetcher.
// Callers match them with errors.Is; the underlying cause stays in the chain.
var (
	ErrMalformedURL       = errors.New("malformed download url")
	ErrDownload           = errors.New("download failed")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrExtraction         = errors.New("archive extraction failed")
	ErrVerification       = errors.New("archive verification failed")
)
