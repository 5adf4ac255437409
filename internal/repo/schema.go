package repo

// schema — DDL движка. Идемпотентна, применяется через Migrate.
const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	trigger_type    TEXT NOT NULL,
	schedule        TEXT,
	entry_action_id TEXT,
	created_by      TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS action_nodes (
	workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	position    INT  NOT NULL,
	type        TEXT NOT NULL,
	params      JSONB NOT NULL DEFAULT '{}',
	next_ids    TEXT[] NOT NULL DEFAULT '{}',
	PRIMARY KEY (workflow_id, id)
);

CREATE INDEX IF NOT EXISTS idx_action_nodes_position ON action_nodes (workflow_id, position);

CREATE TABLE IF NOT EXISTS workflow_executions (
	workflow_id       TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	execution_id      TEXT NOT NULL,
	current_action_id TEXT,
	completed         BOOLEAN NOT NULL DEFAULT FALSE,
	retries           JSONB NOT NULL DEFAULT '{}',
	started_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (workflow_id, execution_id)
);

CREATE TABLE IF NOT EXISTS workflow_execution_logs (
	id           TEXT PRIMARY KEY,
	workflow_id  TEXT NOT NULL,
	execution_id TEXT NOT NULL,
	action_id    TEXT NOT NULL,
	status       TEXT NOT NULL,
	attempt      INT  NOT NULL DEFAULT 0,
	message      TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_execution_logs_execution
	ON workflow_execution_logs (workflow_id, execution_id, created_at);
`
