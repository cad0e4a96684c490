package ledger

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id          TEXT PRIMARY KEY,
    target_repo     TEXT NOT NULL,
    branch_name     TEXT,
    status          TEXT NOT NULL DEFAULT 'running',
    started_at      TIMESTAMP,
    completed_at    TIMESTAMP,
    duration_ns     INTEGER,
    error           TEXT,
    repo_analysis   TEXT DEFAULT '{}',
    improvements    TEXT DEFAULT '[]',
    code_changes    TEXT DEFAULT '[]',
    review          TEXT DEFAULT '{}',
    tests_generated TEXT DEFAULT '[]',
    test_results    TEXT DEFAULT '[]',
    merge_result    TEXT DEFAULT '{}',
    docs_updated    TEXT DEFAULT '[]',
    log_file        TEXT,
    created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);

CREATE TABLE IF NOT EXISTS beads (
    id              TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
    seq             INTEGER NOT NULL DEFAULT 0,
    name            TEXT NOT NULL,
    category        TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    started_at      TIMESTAMP,
    completed_at    TIMESTAMP,
    duration_ns     INTEGER,
    input_summary   TEXT DEFAULT '',
    output_summary  TEXT DEFAULT '',
    error           TEXT,
    metadata        TEXT DEFAULT '{}',
    created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_beads_run_id ON beads(run_id);
CREATE INDEX IF NOT EXISTS idx_beads_status ON beads(status);
CREATE INDEX IF NOT EXISTS idx_beads_category ON beads(category);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id          TEXT PRIMARY KEY,
    target_repo     TEXT NOT NULL,
    branch_name     TEXT,
    status          TEXT NOT NULL DEFAULT 'running',
    started_at      TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    duration_ns     BIGINT,
    error           TEXT,
    repo_analysis   TEXT DEFAULT '{}',
    improvements    TEXT DEFAULT '[]',
    code_changes    TEXT DEFAULT '[]',
    review          TEXT DEFAULT '{}',
    tests_generated TEXT DEFAULT '[]',
    test_results    TEXT DEFAULT '[]',
    merge_result    TEXT DEFAULT '{}',
    docs_updated    TEXT DEFAULT '[]',
    log_file        TEXT,
    created_at      TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);

CREATE TABLE IF NOT EXISTS beads (
    id              TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
    seq             INTEGER NOT NULL DEFAULT 0,
    name            TEXT NOT NULL,
    category        TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    started_at      TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    duration_ns     BIGINT,
    input_summary   TEXT DEFAULT '',
    output_summary  TEXT DEFAULT '',
    error           TEXT,
    metadata        TEXT DEFAULT '{}',
    created_at      TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_beads_run_id ON beads(run_id);
CREATE INDEX IF NOT EXISTS idx_beads_status ON beads(status);
CREATE INDEX IF NOT EXISTS idx_beads_category ON beads(category);
`
