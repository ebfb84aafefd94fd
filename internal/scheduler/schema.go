package scheduler

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id           TEXT PRIMARY KEY,
    fire_at      INTEGER NOT NULL,
    payload_kind TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_fire_at ON jobs(fire_at);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// schemaVersion is written to the meta table on first creation and checked
// on every open, the same x/mod/semver guard relay assignments use —
// refusing to open a store written by a future, incompatible version
// rather than silently misreading it.
const schemaVersion = "v1.0.0"
