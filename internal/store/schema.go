package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    analyzed_at          TEXT NOT NULL,
    log_path             TEXT NOT NULL,
    iterations           INTEGER NOT NULL,
    sessions             INTEGER NOT NULL,
    error_count          INTEGER NOT NULL,
    total_cost           TEXT NOT NULL,
    input_tokens         INTEGER NOT NULL,
    output_tokens        INTEGER NOT NULL,
    waste_tokens         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_patterns (
    run_id               INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    name                 TEXT NOT NULL,
    occurrences          INTEGER NOT NULL,
    waste_tokens         INTEGER NOT NULL,
    PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_analyzed ON runs(analyzed_at);
CREATE INDEX IF NOT EXISTS idx_runs_log ON runs(log_path);
`
