package store

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNoRawReport indicates no archived analyzer output for the project.
var ErrNoRawReport = fmt.Errorf("no raw report archived")

// SaveRawReport archives the analyzer's raw output for a project, LZ4
// compressed. One archive per project; re-saving replaces it.
func (s *Store) SaveRawReport(projectID string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed, err := compress(raw)
	if err != nil {
		return err
	}

	err = sqlitex.Execute(s.conn,
		`INSERT INTO raw_reports (project_id, compressed, raw_bytes, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   compressed = excluded.compressed,
		   raw_bytes = excluded.raw_bytes,
		   created_at = excluded.created_at`,
		&sqlitex.ExecOptions{
			Args: []any{projectID, compressed, len(raw), time.Now().UTC().Format(time.RFC3339)},
		})
	if err != nil {
		return fmt.Errorf("archive raw report: %w", err)
	}

	return nil
}

// RawReport returns the decompressed archived analyzer output for a project.
func (s *Store) RawReport(projectID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var compressed []byte

	err := sqlitex.Execute(s.conn,
		`SELECT compressed FROM raw_reports WHERE project_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				compressed = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, compressed)

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("load raw report: %w", err)
	}

	if compressed == nil {
		return nil, ErrNoRawReport
	}

	return decompress(compressed)
}

// compress wraps the payload in an LZ4 frame; the frame header makes the
// archive self-describing so no original-length bookkeeping is needed.
func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)

	_, err := writer.Write(raw)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, fmt.Errorf("lz4 finalize: %w", closeErr)
	}

	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(compressed))

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}

	return raw, nil
}
