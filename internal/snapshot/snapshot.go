// Package snapshot implements the sensor snapshot store spec.md §4.10
// describes: a single JSON document every sensor driver writes into and
// every control loop reads from. It is the sole shared read surface
// between SensorBus polling and the control loops (spec.md §2 "Data flow").
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/types"
)

// Fields is the innermost payload of a measurement point (spec.md §6
// "Persisted-state layout").
type Fields struct {
	Value *float64 `json:"value"`
}

// Point is one measurement observation for a given location.
type Point struct {
	Fields    Fields    `json:"fields"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// Measurements wraps the points slice — kept as its own type to match the
// byte-exact key layout spec.md §6 pins down
// (data.water_metrics.<kind>.measurements.points).
type Measurements struct {
	Points []Point `json:"points"`
}

// KindMetrics is one sensor kind's measurements.
type KindMetrics struct {
	Measurements Measurements `json:"measurements"`
}

// Document is the on-disk shape of the sensor snapshot (spec.md §6).
type Document struct {
	Data struct {
		WaterMetrics map[string]KindMetrics `json:"water_metrics"`
	} `json:"data"`
	LastUpdated time.Time `json:"last_updated"`
}

func empty() *Document {
	d := &Document{}
	d.Data.WaterMetrics = map[string]KindMetrics{}
	return d
}

// Store is the atomic read/write wrapper over a single snapshot file.
type Store struct {
	fs   ports.FileStore
	path string
	log  *rlog.Logger
}

// New returns a Store backed by fs, reading/writing path.
func New(fs ports.FileStore, path string) *Store {
	return &Store{fs: fs, path: path, log: rlog.New("snapshot")}
}

// Read loads the snapshot document, tolerating a missing, empty, truncated
// or garbage file by returning an empty Document (spec.md §3): "Readers
// MUST tolerate ... and yield an empty snapshot in that case (logged)."
func (s *Store) Read() *Document {
	data, err := s.fs.Read(s.path)
	if err != nil {
		s.log.Info("sensor snapshot %s unavailable, using empty snapshot: %v", s.path, err)
		return empty()
	}
	if len(data) == 0 {
		s.log.Info("sensor snapshot %s is empty, using empty snapshot", s.path)
		return empty()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("sensor snapshot %s is corrupt, using empty snapshot: %v", s.path, err)
		return empty()
	}
	if doc.Data.WaterMetrics == nil {
		doc.Data.WaterMetrics = map[string]KindMetrics{}
	}
	return &doc
}

// Latest returns the most recent reading for (kind, location). location =
// "" matches the first point with no location tag, the common case for a
// single sensor per kind.
func (s *Store) Latest(kind types.SensorKind, location string) (types.Reading, bool) {
	doc := s.Read()
	km, ok := doc.Data.WaterMetrics[string(kind)]
	if !ok {
		return types.Reading{}, false
	}
	for _, p := range km.Measurements.Points {
		if p.Location == location {
			return types.Reading{Value: p.Fields.Value, Timestamp: p.Timestamp}, true
		}
	}
	return types.Reading{}, false
}

// Write splices a new measurement into the snapshot at its keyed path and
// atomically replaces the file (spec.md §4.10, §5 "Sensor snapshot file").
// It follows the donor's read-modify-atomic-write shape used throughout
// internal/storage: read current state, mutate in memory, then persist via
// a single AtomicWrite call so readers never observe a partial file
// (invariant I7).
func (s *Store) Write(kind types.SensorKind, location string, reading types.Reading) error {
	doc := s.Read()

	km := doc.Data.WaterMetrics[string(kind)]
	replaced := false
	for i, p := range km.Measurements.Points {
		if p.Location == location {
			km.Measurements.Points[i] = Point{
				Fields:    Fields{Value: reading.Value},
				Timestamp: reading.Timestamp,
				Location:  location,
			}
			replaced = true
			break
		}
	}
	if !replaced {
		km.Measurements.Points = append([]Point{{
			Fields:    Fields{Value: reading.Value},
			Timestamp: reading.Timestamp,
			Location:  location,
		}}, km.Measurements.Points...)
	}
	doc.Data.WaterMetrics[string(kind)] = km
	doc.LastUpdated = reading.Timestamp

	out, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.fs.AtomicWrite(s.path, out, 0o644)
}
