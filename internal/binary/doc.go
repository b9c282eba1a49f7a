// Package binary downloads, verifies, and unpacks the release archives the
// provisioner installs.
//
// # Verification
//
// Archives with a pinned digest are checked with VerifySHA256 before they are
// extracted. Releases that publish a sha256sum manifest can be checked with
// ParseChecksums and FindChecksum, and the manifest itself can be
// authenticated against an OpenPGP keyring with VerifyDetachedSignature.
//
// # Usage
//
//	dl := binary.NewDownloader("1.0.0")
//	err := dl.Download(ctx, desc.URL, archivePath, func(ctx context.Context, p binary.Progress) error {
//	    fmt.Printf("%.1f%%\n", p.Percentage)
//	    return nil
//	})
//	ok, err := binary.VerifySHA256(archivePath, desc.SHA256)
//	err = binary.NewExtractor().Extract(ctx, desc.Format, archivePath, desc.Dir)
//
// # Architecture
//
//   - Downloader: streaming HTTP download with per-chunk progress
//   - Verify: SHA-256, MD5, checksum manifests, detached signatures
//   - Extractor: tar.gz and zip unpacking with path-traversal protection
package binary
