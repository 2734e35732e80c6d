package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"cloudpico-metobs/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Open returns the station directory database. The default DSN is a shared-cache
// in-memory database, so the pool is pinned to one connection that is never
// recycled; closing it discards the directory.
func Open(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn := buildDSN(cfg.StationsDSN)

	var db *sql.DB
	if cfg.SQLLog {
		connector, err := NewLoggingConnector(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		var err error
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
