package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lumina-grow/ripple/internal/types"
)

// Store is the config substrate spec.md §4.7 describes: a path to an INI
// file, read fresh on every getter call so changes take effect without a
// process restart. It holds no mutable state of its own — the "immutable
// snapshot" spec.md refers to is the sections value produced transiently
// inside each Get call.
type Store struct {
	path string
}

// New returns a Store reading from path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() sections {
	doc, err := parseINI(s.path)
	if err != nil {
		// Recovered silently (spec.md §7): callers fall back to safe
		// defaults below regardless of the parse error.
		return sections{}
	}
	return doc
}

func (s *Store) raw(section, key string) (string, bool) {
	doc := s.load()
	sec, ok := doc[section]
	if !ok {
		return "", false
	}
	v, ok := sec[key]
	return v, ok
}

// GetStringAt returns the dual-value string at the given preferred index
// (0 = server default, 1 = operational). Most callers want GetString,
// which always requests index 1.
func (s *Store) GetStringAt(section, key string, index int, def string) string {
	raw, ok := s.raw(section, key)
	if !ok {
		return def
	}
	return dualValue(raw, index)
}

// GetString returns the operational (index 1) string value for key, or def
// if the key is missing.
func (s *Store) GetString(section, key, def string) string {
	return s.GetStringAt(section, key, 1, def)
}

// GetFloat returns the operational float value for key, falling back to
// def on any missing key or parse failure.
func (s *Store) GetFloat(section, key string, def float64) float64 {
	v := s.GetString(section, key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the operational bool value for key, falling back to def
// on any missing key or parse failure. Accepts the usual strconv.ParseBool
// spellings plus "yes"/"no" for parity with the original INI's authoring
// style.
func (s *Store) GetBool(section, key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(s.GetString(section, key, "")))
	switch v {
	case "":
		return def
	case "yes", "y":
		return true
	case "no", "n":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetDurationSeconds returns the operational Duration (spec.md §3) for key
// in seconds, falling back to def on any missing key. Malformed duration
// strings parse to 0 per ParseDuration, not def — this matches spec.md §3
// ("malformed input yields 0 which means disabled").
func (s *Store) GetDurationSeconds(section, key string, def int) int {
	v := s.GetString(section, key, "")
	if v == "" {
		return def
	}
	return types.ParseDuration(v)
}

// GetABCRatio returns the operational nutrient_pump abc_ratio, falling back
// to types.DefaultABCRatio on any missing key or malformed value.
func (s *Store) GetABCRatio(section, key string) types.ABCRatio {
	v := s.GetString(section, key, "")
	if v == "" {
		return types.DefaultABCRatio
	}
	return types.ParseABCRatio(v)
}

// Path returns the underlying file path, for logging and the doctor
// pre-flight check.
func (s *Store) Path() string { return s.path }

// SetOperational rewrites the operational half of section.key, preserving
// the server-default half if the cell is dual-valued, and persists it —
// the write side of update_sensor_targets (spec.md §6).
func (s *Store) SetOperational(section, key, value string) error {
	existing, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read config %s: %w", s.path, err)
	}
	updated := setOperationalLine(string(existing), section, key, value)
	return os.WriteFile(s.path, []byte(updated), 0o644)
}
