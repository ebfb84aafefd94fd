package scheduler

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded, CGO-free SQLite engine
)

// SQLiteStore is the durable job store (spec.md §4.8 "a single SQLite
// file"). Grounded on the donor's internal/storage/sqlite.New: ensure the
// directory exists, open with pragmas tuned for a single-writer workload,
// apply schema, validate the stored schema version.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if absent) the job store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create job store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping job store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize job store schema: %w", err)
	}

	if err := checkOrSetSchemaVersion(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func checkOrSetSchemaVersion(db *sql.DB) error {
	var stored string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	if err == sql.ErrNoRows {
		_, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("read job store schema_version: %w", err)
	}

	v := stored
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("job store: invalid schema_version %q", stored)
	}
	if semver.Compare(v, schemaVersion) > 0 {
		return fmt.Errorf("job store: schema_version %s is newer than supported %s", stored, schemaVersion)
	}
	return nil
}

func (s *SQLiteStore) AddJob(job Job) error {
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, fire_at, payload_kind) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fire_at = excluded.fire_at, payload_kind = excluded.payload_kind`,
		job.ID, job.FireAt.UTC().UnixNano(), job.PayloadKind,
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveJob(id string) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(id string) (Job, bool) {
	var j Job
	var fireAtNano int64
	err := s.db.QueryRow(`SELECT id, fire_at, payload_kind FROM jobs WHERE id = ?`, id).
		Scan(&j.ID, &fireAtNano, &j.PayloadKind)
	if err != nil {
		return Job{}, false
	}
	j.FireAt = unixNanoToTime(fireAtNano)
	return j, true
}

func (s *SQLiteStore) GetJobs() []Job {
	rows, err := s.db.Query(`SELECT id, fire_at, payload_kind FROM jobs`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var fireAtNano int64
		if err := rows.Scan(&j.ID, &fireAtNano, &j.PayloadKind); err != nil {
			continue
		}
		j.FireAt = unixNanoToTime(fireAtNano)
		out = append(out, j)
	}
	return out
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
