// Package store persists enriched analysis results to a local SQLite file
// with a full-text index over the stored file rows. The index is kept in
// sync by triggers inside the store itself; callers never re-index.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/pkg/units"
)

// ErrProjectNotFound indicates a lookup or delete for an unknown project id.
var ErrProjectNotFound = errors.New("project not found")

// Store is a single-connection SQLite store. The mutex serializes writers;
// the supervising process is the only client, so no cross-process locking
// discipline is needed beyond the transaction boundary.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// Project is one persisted project row.
type Project struct {
	ID          string
	Name        string
	RootPath    string
	AnalyzedAt  string
	FileCount   int
	TotalChunks int
}

// SearchHit is one full-text match over the stored file rows.
type SearchHit struct {
	ProjectID string
	RelPath   string
	Category  string
	Snippet   string
}

// Open opens (creating if needed) the store at path and applies pending
// schema migrations. Re-applying an already-recorded version is a no-op.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		pragmaErr := sqlitex.ExecuteTransient(conn, pragma, nil)
		if pragmaErr != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("apply pragma: %w", pragmaErr)
		}
	}

	store := &Store{conn: conn}

	migrateErr := store.migrate()
	if migrateErr != nil {
		_ = conn.Close()

		return nil, migrateErr
	}

	return store, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}

// SaveAnalysis transactionally replaces any prior rows for rootPath with the
// given result and returns the new project identifier. Cascade delete on the
// old project row removes its file rows; the full-text index follows through
// its own triggers. Nothing is visible until commit, so a failure mid-insert
// leaves the previous state for that root untouched.
func (s *Store) SaveAnalysis(rootPath string, result *ingest.AnalysisResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer endFn(&err)

	err = sqlitex.Execute(s.conn, `DELETE FROM projects WHERE root_path = ?`, &sqlitex.ExecOptions{
		Args: []any{rootPath},
	})
	if err != nil {
		return "", fmt.Errorf("replace prior project: %w", err)
	}

	projectID := uuid.NewString()
	analyzedAt := time.Now().UTC().Format(time.RFC3339)

	metadata, err := projectMetadata(result)
	if err != nil {
		return "", err
	}

	err = sqlitex.Execute(s.conn,
		`INSERT INTO projects (id, name, root_path, analyzed_at, file_count, total_chunks, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				projectID, result.ProjectName, rootPath, analyzedAt,
				len(result.Files), len(result.Files), string(metadata),
			},
		})
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}

	insertErr := s.insertFiles(projectID, analyzedAt, result)
	if insertErr != nil {
		err = insertErr

		return "", insertErr
	}

	return projectID, nil
}

func (s *Store) insertFiles(projectID, analyzedAt string, result *ingest.AnalysisResult) error {
	stmt, err := s.conn.Prepare(
		`INSERT INTO code_files
		 (id, project_id, rel_path, chunk_index, chunk_total, chunk_context, category,
		  content, content_hash, size_bytes, line_count, analyzed_at, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, relPath := range result.FileNames() {
		info := result.Files[relPath]

		blob, marshalErr := json.Marshal(info)
		if marshalErr != nil {
			return fmt.Errorf("marshal file metadata %s: %w", relPath, marshalErr)
		}

		hash := sha256.Sum256([]byte(info.Content))

		stmt.BindText(1, uuid.NewString())
		stmt.BindText(2, projectID)
		stmt.BindText(3, relPath)
		stmt.BindInt64(4, 0)
		stmt.BindInt64(5, 1)
		stmt.BindText(6, "")
		stmt.BindText(7, info.Category)
		stmt.BindText(8, info.Content)
		stmt.BindText(9, hex.EncodeToString(hash[:]))
		stmt.BindInt64(10, units.ParseDescriptor(info.Size))
		stmt.BindInt64(11, int64(info.Lines))
		stmt.BindText(12, analyzedAt)
		stmt.BindText(13, string(blob))

		_, stepErr := stmt.Step()
		if stepErr != nil {
			return fmt.Errorf("insert file %s: %w", relPath, stepErr)
		}

		_ = stmt.Reset()
	}

	return nil
}

// projectMetadata serializes the analyzer's opaque summary alongside the
// statistics block for the project row.
func projectMetadata(result *ingest.AnalysisResult) ([]byte, error) {
	metadata := map[string]json.RawMessage{}

	if len(result.Summary) > 0 {
		metadata["summary"] = result.Summary
	}

	if len(result.Statistics) > 0 {
		metadata["statistics"] = result.Statistics
	}

	blob, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal project metadata: %w", err)
	}

	return blob, nil
}

// Projects lists all persisted projects, newest first.
func (s *Store) Projects() ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var projects []Project

	err := sqlitex.Execute(s.conn,
		`SELECT id, name, root_path, analyzed_at, file_count, total_chunks
		 FROM projects ORDER BY analyzed_at DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				projects = append(projects, Project{
					ID:          stmt.ColumnText(0),
					Name:        stmt.ColumnText(1),
					RootPath:    stmt.ColumnText(2),
					AnalyzedAt:  stmt.ColumnText(3),
					FileCount:   int(stmt.ColumnInt64(4)),
					TotalChunks: int(stmt.ColumnInt64(5)),
				})

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

// ProjectByRoot returns the project persisted for a root path.
func (s *Store) ProjectByRoot(rootPath string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		project Project
		found   bool
	)

	err := sqlitex.Execute(s.conn,
		`SELECT id, name, root_path, analyzed_at, file_count, total_chunks
		 FROM projects WHERE root_path = ?`,
		&sqlitex.ExecOptions{
			Args: []any{rootPath},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				project = Project{
					ID:          stmt.ColumnText(0),
					Name:        stmt.ColumnText(1),
					RootPath:    stmt.ColumnText(2),
					AnalyzedAt:  stmt.ColumnText(3),
					FileCount:   int(stmt.ColumnInt64(4)),
					TotalChunks: int(stmt.ColumnInt64(5)),
				}

				return nil
			},
		})
	if err != nil {
		return Project{}, fmt.Errorf("load project: %w", err)
	}

	if !found {
		return Project{}, ErrProjectNotFound
	}

	return project, nil
}

// DeleteProject removes a project and, via cascade, its file rows.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `DELETE FROM projects WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if s.conn.Changes() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// Search runs a full-text query over the stored file rows and returns up to
// limit hits with a short highlighted snippet.
func (s *Store) Search(query string, limit int) ([]SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hits []SearchHit

	err := sqlitex.Execute(s.conn,
		`SELECT cf.project_id, cf.rel_path, cf.category,
		        snippet(code_files_fts, 1, '[', ']', '…', 12)
		 FROM code_files_fts
		 JOIN code_files cf ON cf.rowid = code_files_fts.rowid
		 WHERE code_files_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{query, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				hits = append(hits, SearchHit{
					ProjectID: stmt.ColumnText(0),
					RelPath:   stmt.ColumnText(1),
					Category:  stmt.ColumnText(2),
					Snippet:   stmt.ColumnText(3),
				})

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return hits, nil
}

// FileCount returns the number of stored file rows for a project.
func (s *Store) FileCount(projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int

	err := sqlitex.Execute(s.conn,
		`SELECT COUNT(*) FROM code_files WHERE project_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = int(stmt.ColumnInt64(0))

				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}

	return count, nil
}
