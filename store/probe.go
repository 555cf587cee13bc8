package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"probes/config"
	"probes/logger"
	"probes/models"
)

// RunCycle performs one connect, recreate, insert, select, drop, close pass.
// The first failing step aborts the cycle; nothing is cleaned up on error.
func RunCycle(ctx context.Context, cfg config.Database) (models.CycleReport, error) {
	report := models.CycleReport{RunID: uuid.NewString(), Started: time.Now()}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return report, fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	conn, err := db.Conn(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	s := NewScratch(conn, cfg.Table)
	if err := s.Recreate(ctx); err != nil {
		return report, err
	}
	stmt, err := s.PrepareInsert(ctx)
	if err != nil {
		return report, err
	}
	defer stmt.Close()

	if err := s.InsertAll(ctx, stmt, cfg.Names, cfg.Pause.Duration); err != nil {
		return report, err
	}
	logger.Debug("scratch rows inserted", logger.FieldKV("run_id", report.RunID), logger.FieldKV("count", len(cfg.Names)))

	rows, err := s.ReadAll(ctx)
	if err != nil {
		return report, err
	}
	if err := s.Drop(ctx); err != nil {
		return report, err
	}
	if err := stmt.Close(); err != nil {
		return report, fmt.Errorf("close insert statement: %w", err)
	}
	if err := conn.Close(); err != nil {
		return report, fmt.Errorf("release connection: %w", err)
	}
	if err := db.Close(); err != nil {
		return report, fmt.Errorf("close: %w", err)
	}

	report.Rows = rows
	report.Duration = time.Since(report.Started)
	return report, nil
}

// Run repeats RunCycle until ctx is cancelled or a cycle fails.
func Run(ctx context.Context, cfg config.Database, report func(models.CycleReport)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		r, err := RunCycle(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("cycle %s: %w", r.RunID, err)
		}
		report(r)
	}
}
