package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database owns the ledger's gorm handle and its connection pool
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// Option adjusts the gorm configuration used by NewDatabase
type Option func(*gorm.Config)

// WithGormLogger routes gorm's statement log to l
func WithGormLogger(l gormlogger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// WithoutPreparedStatements disables the statement cache, e.g. behind
// PgBouncer in transaction pooling mode
func WithoutPreparedStatements() Option {
	return func(c *gorm.Config) { c.PrepareStmt = false }
}

// NewDatabase connects to PostgreSQL, sizes the pool from cfg and checks
// the connection before returning. Every ledger write runs in an explicit
// unit of work, so gorm's implicit per-statement transaction is off.
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d, err := Wrap(db)
	if err != nil {
		return nil, err
	}

	d.sql.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sql.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sql.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	d.sql.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := d.Ping(ctx); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	return d, nil
}

// Wrap adopts an already opened gorm handle
func Wrap(db *gorm.DB) (*Database, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

// SQLDB returns the pool, e.g. for migrations
func (d *Database) SQLDB() *sql.DB {
	return d.sql
}

// Ping checks the database is reachable within ctx
func (d *Database) Ping(ctx context.Context) error {
	if err := d.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the pool
func (d *Database) Close() error {
	return d.sql.Close()
}
