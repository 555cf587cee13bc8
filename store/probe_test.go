package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"probes/config"
	"probes/models"
)

// newMockDB creates a sqlmock database with expectation checking at cleanup.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// useDBs makes openDB hand out the given databases in order.
func useDBs(t *testing.T, dbs ...*sql.DB) {
	t.Helper()
	orig := openDB
	openDB = func(ctx context.Context, cfg config.Database) (*sql.DB, error) {
		if len(dbs) == 0 {
			return nil, errors.New("no more mock databases")
		}
		db := dbs[0]
		dbs = dbs[1:]
		return db, nil
	}
	t.Cleanup(func() { openDB = orig })
}

func testConfig(names []string) config.Database {
	cfg := config.Default().Database
	cfg.Pause.Duration = 0
	cfg.Names = names
	return cfg
}

// expectCycle registers the full statement sequence of one successful cycle.
func expectCycle(mock sqlmock.Sqlmock, names []string) {
	drop := regexp.QuoteMeta("DROP TABLE IF EXISTS `names`")
	mock.ExpectExec(drop).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE `names` (")).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO `names` (name) VALUES (?)"))
	for i, name := range names {
		prep.ExpectExec().WithArgs(name).WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
		mock.ExpectExec("^COMMIT$").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	rows := sqlmock.NewRows([]string{"id", "name", "cnt"})
	for i, name := range names {
		rows.AddRow(int64(i+1), name, int64(0))
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, cnt FROM `names` ORDER BY id")).WillReturnRows(rows)
	mock.ExpectExec(drop).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
}

func TestRunCycleFixedNames(t *testing.T) {
	db, mock := newMockDB(t)
	names := config.DefaultNames
	expectCycle(mock, names)
	useDBs(t, db)

	report, err := RunCycle(context.Background(), testConfig(names))
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	lines := report.Lines()
	if len(lines) != 26 {
		t.Fatalf("expected 26 lines, got %d", len(lines))
	}
	if lines[0] != "1 | Geert" {
		t.Errorf("first line = %q", lines[0])
	}
	// The fixed list ends with "wang".
	if lines[25] != "26 | wang" {
		t.Errorf("last line = %q", lines[25])
	}
	for i, row := range report.Rows {
		if int(row.ID) != i+1 {
			t.Errorf("row %d has id %d", i, row.ID)
		}
		if row.Name != names[i] {
			t.Errorf("row %d name = %q, want %q", i, row.Name, names[i])
		}
	}
	if report.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunCycleEmptyNames(t *testing.T) {
	db, mock := newMockDB(t)
	expectCycle(mock, nil)
	useDBs(t, db)

	report, err := RunCycle(context.Background(), testConfig(nil))
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(report.Rows) != 0 || len(report.Lines()) != 0 {
		t.Errorf("expected no rows, got %v", report.Rows)
	}
}

func TestRunCycleStopsAtFirstError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `names`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE `names` (")).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO `names` (name) VALUES (?)"))
	prep.ExpectExec().WithArgs("Geert").WillReturnError(fmt.Errorf("Error 1146: table doesn't exist"))
	mock.ExpectClose()
	useDBs(t, db)

	_, err := RunCycle(context.Background(), testConfig([]string{"Geert", "Jan"}))
	if err == nil {
		t.Fatal("expected insert error")
	}
}

func TestRunCycleConnectError(t *testing.T) {
	orig := openDB
	openDB = func(context.Context, config.Database) (*sql.DB, error) { return nil, errors.New("refused") }
	t.Cleanup(func() { openDB = orig })

	if _, err := RunCycle(context.Background(), testConfig(nil)); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestRunRepeatsWithSameShape(t *testing.T) {
	names := []string{"Geert", "Jan", "Jan"}
	db1, mock1 := newMockDB(t)
	expectCycle(mock1, names)
	db2, mock2 := newMockDB(t)
	expectCycle(mock2, names)
	useDBs(t, db1, db2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var reports []models.CycleReport
	err := Run(ctx, testConfig(names), func(r models.CycleReport) {
		reports = append(reports, r)
		if len(reports) == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(reports))
	}
	a, b := reports[0].Lines(), reports[1].Lines()
	if len(a) != len(b) {
		t.Fatalf("cycle shapes differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("line %d differs: %q vs %q", i, a[i], b[i])
		}
	}
	if reports[0].RunID == reports[1].RunID {
		t.Error("run ids should differ between cycles")
	}
}

func TestRunReturnsCycleError(t *testing.T) {
	orig := openDB
	openDB = func(context.Context, config.Database) (*sql.DB, error) { return nil, errors.New("refused") }
	t.Cleanup(func() { openDB = orig })

	err := Run(context.Background(), testConfig(nil), func(models.CycleReport) {
		t.Fatal("no report expected")
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep ignored cancellation")
	}
}
