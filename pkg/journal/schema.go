package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the session journal tables. Times are stored as Unix
// milliseconds so both SQLite drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,

    state TEXT NOT NULL,
    reason TEXT,
    error_kind TEXT,
    error TEXT,

    chunks INTEGER NOT NULL,
    bytes INTEGER NOT NULL,

    started_at INTEGER NOT NULL,
    ended_at INTEGER NOT NULL,
    first_chunk_ms INTEGER,
    duration_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);
CREATE INDEX IF NOT EXISTS idx_sessions_provider ON sessions(provider);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRecord = `
INSERT OR REPLACE INTO sessions (
    id, request_id, provider, model,
    state, reason, error_kind, error,
    chunks, bytes,
    started_at, ended_at, first_chunk_ms, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecords = `
SELECT id, request_id, provider, model,
       state, reason, error_kind, error,
       chunks, bytes,
       started_at, ended_at, first_chunk_ms, duration_ms
FROM sessions
`
