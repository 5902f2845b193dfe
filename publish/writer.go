// Package publish writes the run's artifacts to the output directory and,
// when configured, mirrors them to remote storage.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes v as pretty-printed JSON, atomically (tmp file plus
// rename), creating the parent directory on demand. Downstream consumers
// polling the output dir never observe a partially written artifact.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("publish: marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("publish: create output dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("publish: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish: rename %s: %w", path, err)
	}
	return nil
}
