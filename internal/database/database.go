// Package database opens the SQL backends and creates the schema.
//
// Postgres is reached through a pgx connection pool, MySQL through
// database/sql with the go-sql-driver connector. Both expose Migrate, which
// creates the users and signatures tables when they do not exist.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres connects a pool to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 3 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	log.Print("[INFO] postgres pool initialized")
	return pool, nil
}

// OpenMySQL connects to dsn. parseTime is forced on so DATETIME columns scan
// into time.Time.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	log.Println("[INFO] mysql client initialized")
	return db, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS signatures (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	x           DOUBLE PRECISION NOT NULL,
	y           DOUBLE PRECISION NOT NULL,
	page        INTEGER NOT NULL DEFAULT 1 CHECK (page >= 1),
	status      TEXT NOT NULL DEFAULT 'signed' CHECK (status IN ('signed', 'pending', 'rejected')),
	signed_at   TIMESTAMPTZ NOT NULL,
	signed_url  TEXT NOT NULL,
	storage_id  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS signatures_document_id_idx ON signatures (document_id)`,
	`CREATE INDEX IF NOT EXISTS signatures_owner_signed_at_idx ON signatures (owner_id, signed_at DESC)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id            VARCHAR(36) PRIMARY KEY,
	name          VARCHAR(255) NOT NULL,
	email         VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role          VARCHAR(32) NOT NULL DEFAULT 'user',
	created_at    DATETIME(6) NOT NULL,
	updated_at    DATETIME(6) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS signatures (
	id          VARCHAR(36) PRIMARY KEY,
	document_id VARCHAR(255) NOT NULL,
	owner_id    VARCHAR(36) NOT NULL,
	x           DOUBLE NOT NULL,
	y           DOUBLE NOT NULL,
	page        INT NOT NULL DEFAULT 1,
	status      VARCHAR(16) NOT NULL DEFAULT 'signed',
	signed_at   DATETIME(6) NOT NULL,
	signed_url  TEXT NOT NULL,
	storage_id  VARCHAR(512) NOT NULL,
	created_at  DATETIME(6) NOT NULL,
	updated_at  DATETIME(6) NOT NULL,
	INDEX signatures_document_id_idx (document_id),
	INDEX signatures_owner_signed_at_idx (owner_id, signed_at)
)`,
}

func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migration failed: %w", err)
		}
	}
	return nil
}

func MigrateMySQL(ctx context.Context, db *sql.DB) error {
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql migration failed: %w", err)
		}
	}
	return nil
}
