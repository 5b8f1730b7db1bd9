package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Config struct {
	// Name identifies the in-memory database. Connections opened with the same
	// name share one database; empty picks a fresh one.
	Name string
}

// Open opens a private in-memory SQLite database. It lives as long as the
// returned handle, so nothing survives the process.
func Open(cfg Config) (*sql.DB, error) {
	name := cfg.Name
	if name == "" {
		name = "ganttline-" + uuid.NewString()
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A shared-cache memory database disappears when its last connection closes.
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetMaxOpenConns(1)
	return conn, nil
}
