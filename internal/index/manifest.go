package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// manifestVersion is bumped whenever the on-disk layout changes in a way
// that makes older snapshots unusable.
const manifestVersion = 1

// manifestFile is written next to the chromem store inside each index
// directory and validated before a snapshot is reused.
const manifestFile = "manifest.json"

// manifest records what a persisted index was built with. A snapshot whose
// manifest does not match the current configuration is rebuilt instead of
// loaded, so a model swap or format change never serves stale vectors.
type manifest struct {
	FormatVersion int       `json:"format_version"`
	Category      string    `json:"category"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	Documents     int       `json:"documents"`
	CreatedAt     time.Time `json:"created_at"`
}

// readManifest loads and parses the manifest from dir.
func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// writeManifest persists the manifest into dir. The write goes through a
// temp file and rename so a crash never leaves a truncated manifest that
// would mask a complete snapshot.
func writeManifest(dir string, m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	tmp := filepath.Join(dir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, manifestFile)); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}
