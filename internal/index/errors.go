package index

import "errors"

// Sentinel errors for index lifecycle operations.
var (
	// ErrSnapshotMiss marks a persisted snapshot that cannot be reused:
	// missing directory, unreadable or corrupt manifest, format version or
	// embedding model mismatch, or a store that fails to open. It is the
	// only load-path outcome that triggers a rebuild; it is never surfaced
	// to callers of GetIndex.
	ErrSnapshotMiss = errors.New("index snapshot miss")

	// ErrBuildFailed indicates the fallback build path failed, typically
	// because the documents could not be embedded.
	ErrBuildFailed = errors.New("index build failed")

	// ErrPersistFailed indicates a built index could not be written to its
	// persistence directory.
	ErrPersistFailed = errors.New("index persistence failed")

	// ErrInvalidQuery indicates a malformed query (empty text or k <= 0).
	ErrInvalidQuery = errors.New("invalid query")
)
