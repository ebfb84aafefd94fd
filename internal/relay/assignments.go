package relay

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/lumina-grow/ripple/internal/types"
)

// maxSupportedAssignmentsSchema is the highest RELAY_ASSIGNMENTS schema
// version this build understands. A map file declaring a newer schema is
// refused at load time rather than silently misinterpreted — the donor's
// internal/health/dependency_auditor.go uses golang.org/x/mod/semver the
// same way, to gate on a version string rather than parse it by hand.
const maxSupportedAssignmentsSchema = "v1.0.0"

// assignmentsFile is the YAML shape of the RELAY_ASSIGNMENTS sidecar
// (spec.md §4.9: "Device name -> (board, index) comes from the
// RELAY_ASSIGNMENTS section of config"). Ripple keeps this mapping in its
// own YAML file rather than inline INI keys so it can carry a schema
// version header independent of the dual-value config substrate.
type assignmentsFile struct {
	SchemaVersion string                      `yaml:"schema_version"`
	Devices       map[string]types.RelayAddress `yaml:"devices"`
}

// Assignments resolves logical device names to (board, index) pairs,
// case-insensitively (spec.md §4.9 "Lookup is case-insensitive"), cached
// after first load and re-read on Reload.
type Assignments struct {
	mu      sync.RWMutex
	path    string
	byLower map[string]types.RelayAddress
	names   []string // original-case device names, as declared in the file
}

// LoadAssignments reads and caches the RELAY_ASSIGNMENTS map at path.
func LoadAssignments(path string) (*Assignments, error) {
	a := &Assignments{path: path}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads the assignments file from disk.
func (a *Assignments) Reload() error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read relay assignments %s: %w", a.path, err)
	}

	var doc assignmentsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse relay assignments %s: %w", a.path, err)
	}

	if doc.SchemaVersion != "" {
		v := doc.SchemaVersion
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			return fmt.Errorf("relay assignments %s: invalid schema_version %q", a.path, doc.SchemaVersion)
		}
		if semver.Compare(v, maxSupportedAssignmentsSchema) > 0 {
			return fmt.Errorf("relay assignments %s: schema_version %s is newer than supported %s",
				a.path, doc.SchemaVersion, maxSupportedAssignmentsSchema)
		}
	}

	byLower := make(map[string]types.RelayAddress, len(doc.Devices))
	names := make([]string, 0, len(doc.Devices))
	for name, addr := range doc.Devices {
		byLower[strings.ToLower(name)] = addr
		names = append(names, name)
	}
	sort.Strings(names)

	a.mu.Lock()
	a.byLower = byLower
	a.names = names
	a.mu.Unlock()
	return nil
}

// Resolve looks up a device name case-insensitively.
func (a *Assignments) Resolve(name string) (types.RelayAddress, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	addr, ok := a.byLower[strings.ToLower(name)]
	return addr, ok
}

// DeviceNames returns every assigned device's name in the original casing
// declared in the RELAY_ASSIGNMENTS file, sorted — the authoritative device
// list (spec.md §3), independent of whether anything has been commanded on
// that device yet.
func (a *Assignments) DeviceNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}
