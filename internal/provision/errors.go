package provision

import "errors"

var (
	// ErrUnsupportedTarget means no uv release exists for the host triple.
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrIntegrityMismatch means a downloaded archive failed verification.
	ErrIntegrityMismatch = errors.New("invalid hash")
	// ErrManifestMissing means the host directory has no uv.lock.
	ErrManifestMissing = errors.New("uv.lock not found")
	// ErrInstallDirMissing means `uv python install` left no cpython-3* directory.
	ErrInstallDirMissing = errors.New("failed to get python install dir")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("provisioner already started")
)
