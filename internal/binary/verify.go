package binary

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// VerificationMethod records which checks an archive passed.
type VerificationMethod int

const (
	// VerificationNone means the archive was not verified.
	VerificationNone VerificationMethod = 0
	// VerificationSHA256 means a published SHA-256 checksum matched.
	VerificationSHA256 VerificationMethod = 1 << iota
	// VerificationGPG means a detached OpenPGP signature matched.
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationNone:
		return "None"
	case VerificationSHA256:
		return "SHA256"
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256 | VerificationGPG:
		return "SHA256+GPG"
	default:
		return "Unknown"
	}
}

// Verifier handles cryptographic verification of downloaded archives.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier. keyringPath may be empty, in which case
// signature verification is unavailable and only checksums can be checked.
func NewVerifier(keyringPath string) (*Verifier, error) {
	v := &Verifier{}
	if keyringPath == "" {
		return v, nil
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return nil, err
	}
	v.keyring = keyring
	return v, nil
}

// HasKeyring reports whether signature verification is available.
func (v *Verifier) HasKeyring() bool {
	return len(v.keyring) > 0
}

// VerifySignature checks a detached signature (armored or binary) over the
// file at archivePath. Failures wrap ErrVerification.
func (v *Verifier) VerifySignature(archivePath, signaturePath string) error {
	if !v.HasKeyring() {
		return fmt.Errorf("%w: signature configured but no keyring loaded", ErrVerification)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %w", ErrVerification, err)
	}
	defer archiveFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("%w: open signature: %w", ErrVerification, err)
	}
	defer sigFile.Close()

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, archiveFile, sigFile, nil)
	if err != nil {
		// Try non-armored signature
		if _, seekErr := archiveFile.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("%w: rewind archive: %w", ErrVerification, seekErr)
		}
		if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("%w: rewind signature: %w", ErrVerification, seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(v.keyring, archiveFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: signature: %w", ErrVerification, err)
	}

	return nil
}

// VerifyChecksum compares the SHA-256 of archivePath with the entry for
// fileName in a checksum file. Failures wrap ErrVerification.
func (v *Verifier) VerifyChecksum(archivePath, checksumPath, fileName string) error {
	actual, err := calculateSHA256(archivePath)
	if err != nil {
		return fmt.Errorf("%w: calculate checksum: %w", ErrVerification, err)
	}

	expected, err := findChecksum(checksumPath, fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: checksum mismatch for %s:\nactual:   %s\nexpected: %s",
			ErrVerification, fileName, actual, expected)
	}

	return nil
}

// loadKeyring loads an OpenPGP keyring, armored or binary.
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		if _, seekErr := keyringFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for a specific filename in a checksum file.
// Format: "abc123def456  filename.tar.gz" (an optional "*" marks binary mode).
// A file holding a single bare digest applies to any name.
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	var bare []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		switch {
		case len(parts) == 1 && isSHA256Hex(parts[0]):
			bare = append(bare, parts[0])
			continue
		case len(parts) < 2:
			continue
		}

		checksumFilename := strings.TrimPrefix(parts[1], "*")
		if checksumFilename == filename {
			return parts[0], nil
		}

		// Also check basename (for checksums like "/path/to/file.tar.gz")
		if filepath.Base(checksumFilename) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	if len(bare) == 1 {
		return bare[0], nil
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}

func isSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
