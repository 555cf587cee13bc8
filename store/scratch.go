package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"probes/models"
)

// Scratch runs the probe statements against a throwaway table on one connection.
type Scratch struct {
	conn  *sql.Conn
	table string
}

func NewScratch(conn *sql.Conn, table string) *Scratch {
	return &Scratch{conn: conn, table: myIdent(table)}
}

func (s *Scratch) dropStmt() string { return "DROP TABLE IF EXISTS " + s.table }

// Recreate drops the table if present and creates it empty.
func (s *Scratch) Recreate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, s.dropStmt()); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	create := "CREATE TABLE " + s.table + " (" +
		"id TINYINT UNSIGNED NOT NULL AUTO_INCREMENT, " +
		"name VARCHAR(30) DEFAULT '' NOT NULL, " +
		"cnt TINYINT UNSIGNED DEFAULT 0, " +
		"PRIMARY KEY (id))"
	if _, err := s.conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// PrepareInsert prepares the single-parameter insert once; callers close it.
func (s *Scratch) PrepareInsert(ctx context.Context) (*sql.Stmt, error) {
	stmt, err := s.conn.PrepareContext(ctx, "INSERT INTO "+s.table+" (name) VALUES (?)")
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return stmt, nil
}

// InsertAll executes stmt for each name in order, committing after every row
// and sleeping pause before the next one.
func (s *Scratch) InsertAll(ctx context.Context, stmt *sql.Stmt, names []string, pause time.Duration) error {
	for i, name := range names {
		if _, err := stmt.ExecContext(ctx, name); err != nil {
			return fmt.Errorf("insert %d (%q): %w", i, name, err)
		}
		if _, err := s.conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("commit %d: %w", i, err)
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll selects every row with a plain (unprepared) query.
func (s *Scratch) ReadAll(ctx context.Context) ([]models.ScratchRow, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT id, name, cnt FROM "+s.table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []models.ScratchRow
	for rows.Next() {
		var (
			r   models.ScratchRow
			cnt sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Name, &cnt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		r.Cnt = uint8(cnt.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Scratch) Drop(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, s.dropStmt()); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
