package store

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// migration is one additive schema step. Versions are applied in order and
// recorded in schema_version; a recorded version is never re-run.
type migration struct {
	version int
	script  string
}

var migrations = []migration{
	{
		version: 1,
		script: `
CREATE TABLE projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    root_path TEXT NOT NULL UNIQUE,
    analyzed_at TEXT NOT NULL,
    file_count INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    metadata_json TEXT
);

CREATE TABLE code_files (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    rel_path TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_total INTEGER NOT NULL,
    chunk_context TEXT,
    category TEXT,
    content TEXT,
    content_hash TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    line_count INTEGER NOT NULL DEFAULT 0,
    analyzed_at TEXT NOT NULL,
    metadata_json TEXT
);

CREATE INDEX idx_code_files_project ON code_files(project_id);
CREATE INDEX idx_code_files_rel_path ON code_files(rel_path);
`,
	},
	{
		version: 2,
		script: `
CREATE VIRTUAL TABLE code_files_fts USING fts5(
    rel_path, content, category, chunk_context,
    content=code_files, content_rowid=rowid
);

CREATE TRIGGER code_files_fts_insert AFTER INSERT ON code_files BEGIN
    INSERT INTO code_files_fts(rowid, rel_path, content, category, chunk_context)
    VALUES (new.rowid, new.rel_path, new.content, new.category, new.chunk_context);
END;

CREATE TRIGGER code_files_fts_delete AFTER DELETE ON code_files BEGIN
    INSERT INTO code_files_fts(code_files_fts, rowid, rel_path, content, category, chunk_context)
    VALUES ('delete', old.rowid, old.rel_path, old.content, old.category, old.chunk_context);
END;

CREATE TRIGGER code_files_fts_update AFTER UPDATE ON code_files BEGIN
    INSERT INTO code_files_fts(code_files_fts, rowid, rel_path, content, category, chunk_context)
    VALUES ('delete', old.rowid, old.rel_path, old.content, old.category, old.chunk_context);
    INSERT INTO code_files_fts(rowid, rel_path, content, category, chunk_context)
    VALUES (new.rowid, new.rel_path, new.content, new.category, new.chunk_context);
END;
`,
	},
	{
		version: 3,
		script: `
CREATE TABLE raw_reports (
    project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    compressed BLOB NOT NULL,
    raw_bytes INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
`,
	},
}

func (s *Store) migrate() error {
	bootstrapErr := sqlitex.ExecuteTransient(s.conn, `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
)`, nil)
	if bootstrapErr != nil {
		return fmt.Errorf("bootstrap schema_version: %w", bootstrapErr)
	}

	applied, err := s.appliedVersions()
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.version] {
			continue
		}

		applyErr := s.apply(mig)
		if applyErr != nil {
			return applyErr
		}
	}

	return nil
}

func (s *Store) appliedVersions() (map[int]bool, error) {
	applied := make(map[int]bool)

	err := sqlitex.ExecuteTransient(s.conn, `SELECT version FROM schema_version`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			applied[int(stmt.ColumnInt64(0))] = true

			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read schema versions: %w", err)
	}

	return applied, nil
}

func (s *Store) apply(mig migration) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", mig.version, err)
	}
	defer endFn(&err)

	err = sqlitex.ExecuteScript(s.conn, mig.script, nil)
	if err != nil {
		return fmt.Errorf("apply migration %d: %w", mig.version, err)
	}

	err = sqlitex.Execute(s.conn,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{mig.version, time.Now().UTC().Format(time.RFC3339)},
		})
	if err != nil {
		return fmt.Errorf("record migration %d: %w", mig.version, err)
	}

	return nil
}
