package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"probes/config"
	"probes/logger"
)

// openDB is a test hook that points to Open by default.
var openDB = Open

// Open connects to MySQL with a single-connection pool and pings it.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping %s: %w", cfg.Addr(), err)
	}
	logger.Debug("mysql connected", logger.FieldKV("addr", cfg.Addr()), logger.FieldKV("database", cfg.Name))
	return db, nil
}

// dsn renders the driver DSN. Sessions run with autocommit off so every
// insert is committed explicitly. The DSN form is used rather than
// mysql.NewConnector because only DSN parsing treats charset as a connection
// option instead of a session variable.
func dsn(cfg config.Database) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Name
	mc.Params = map[string]string{"autocommit": "0"}
	if cfg.Charset != "" {
		mc.Params["charset"] = cfg.Charset
	}
	return mc.FormatDSN()
}

// myIdent backtick-quotes an identifier, doubling embedded backticks.
func myIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
