package ports

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalFileStore is the default FileStore: plain local-disk files with a
// write-temp-and-rename AtomicWrite, satisfying spec.md invariant I7 ("The
// sensor snapshot on disk is always readable ... either a valid file or
// the previous file remains"). It is the reference implementation a host
// without its own storage layer can wire directly.
type LocalFileStore struct{}

// AtomicWrite writes data to a temp file in the same directory as path,
// fsyncs it, then renames it over path — rename is atomic on the same
// filesystem, so readers never observe a partially-written file.
func (LocalFileStore) AtomicWrite(path string, data []byte, mode uint32) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, os.FileMode(mode)); err != nil {
		return fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// Read returns the file contents, or an error if it does not exist / can't
// be read. Callers tolerant of a missing file (spec.md §3, §4.10) should
// check Exists first or treat any error as "no data yet".
func (LocalFileStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Delete removes path; deleting a nonexistent file is not an error.
func (LocalFileStore) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (LocalFileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
