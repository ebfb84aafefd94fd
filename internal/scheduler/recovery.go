package scheduler

import (
	"os"

	"github.com/lumina-grow/ripple/internal/rlog"
)

// Open implements the tiered recovery policy spec.md §4.8 describes:
//  1. Open the store at path; if valid, use it.
//  2. If the file is unreadable/corrupt/truncated, delete it and create a
//     fresh one.
//  3. If the directory isn't writable or deletion fails, fall back to an
//     in-memory store and log a prominent warning.
//
// degraded reports whether the in-memory fallback (tier 3) was used.
func Open(path string) (store Store, degraded bool) {
	log := rlog.New("scheduler")

	s, err := OpenSQLiteStore(path)
	if err == nil {
		return s, false
	}
	log.Warn("job store %s unreadable or corrupt, recreating: %v", path, err)

	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		log.Error("job store %s could not be removed (%v); falling back to in-memory store", path, removeErr)
		return NewMemoryStore(), true
	}

	s, err = OpenSQLiteStore(path)
	if err == nil {
		return s, false
	}

	log.Error("job store %s could not be recreated (%v); falling back to in-memory store", path, err)
	return NewMemoryStore(), true
}
