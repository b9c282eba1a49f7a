package binary

import (
	"bufio"
	"crypto/md5" //nolint:gosec // fingerprint of a lockfile, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// hashBufferSize is the fixed read buffer for streaming digests.
const hashBufferSize = 64 * 1024

// VerifySHA256 reports whether the SHA-256 of the file at path equals
// expectedHex. The comparison is case-insensitive. A mismatch returns
// (false, nil); an unreadable file returns (false, err).
func VerifySHA256(path, expectedHex string) (bool, error) {
	actual, err := ComputeSHA256(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expectedHex)), nil
}

// CheckSHA256 is VerifySHA256 returning a *ChecksumError on mismatch.
func CheckSHA256(path, expectedHex string) error {
	actual, err := ComputeSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expectedHex)) {
		return &ChecksumError{Path: path, Expected: expectedHex, Actual: actual}
	}
	return nil
}

// ComputeSHA256 returns the lowercase hex SHA-256 of the file at path.
func ComputeSHA256(path string) (string, error) {
	return digestFile(path, sha256.New())
}

// ComputeMD5 returns the lowercase hex MD5 of the file at path. It is used to
// fingerprint dependency manifests.
func ComputeMD5(path string) (string, error) {
	return digestFile(path, md5.New()) //nolint:gosec
}

func digestFile(path string, h hash.Hash) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, file, buf); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumEntry is one line of a sha256sum-style manifest.
type ChecksumEntry struct {
	Digest string
	Name   string
}

// ParseChecksums reads "digest  filename" lines. Blank lines and lines with
// fewer than two fields are skipped; a leading '*' (binary mode) on the
// filename is stripped.
func ParseChecksums(r io.Reader) ([]ChecksumEntry, error) {
	var entries []ChecksumEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		entries = append(entries, ChecksumEntry{
			Digest: parts[0],
			Name:   strings.TrimPrefix(parts[1], "*"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan checksum file: %w", err)
	}
	return entries, nil
}

// FindChecksum returns the digest recorded for filename. Entries carrying a
// path match on their base name.
func FindChecksum(entries []ChecksumEntry, filename string) (string, error) {
	for _, e := range entries {
		if e.Name == filename {
			return e.Digest, nil
		}
	}
	for _, e := range entries {
		if filepath.Base(e.Name) == filename {
			return e.Digest, nil
		}
	}
	return "", fmt.Errorf("%w for %s", ErrChecksumNotFound, filename)
}

// VerifyDetachedSignature checks sigPath (armored or binary) over signedPath
// using the OpenPGP keyring at keyringPath.
func VerifyDetachedSignature(keyringPath, signedPath, sigPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return err
	}

	signed, err := os.Open(signedPath)
	if err != nil {
		return fmt.Errorf("open signed file: %w", err)
	}
	defer signed.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil)
	if err != nil {
		if _, seekErr := signed.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind signed file: %w", seekErr)
		}
		if _, seekErr := sig.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind signature: %w", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, signed, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// loadKeyring reads an armored or binary OpenPGP keyring.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, errors.New("keyring is empty")
	}
	return keyring, nil
}
