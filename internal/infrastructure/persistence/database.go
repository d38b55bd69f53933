package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldops/stockledger/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database wraps the GORM connection with lifecycle helpers
type Database struct {
	db *gorm.DB
}

// DatabaseOption configures the database connection
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	gormLogger   gormlogger.Interface
	traceEnabled bool
}

// WithGormLogger sets the GORM logger implementation
func WithGormLogger(l gormlogger.Interface) DatabaseOption {
	return func(o *databaseOptions) {
		o.gormLogger = l
	}
}

// WithTracing enables otelgorm query tracing
func WithTracing(enabled bool) DatabaseOption {
	return func(o *databaseOptions) {
		o.traceEnabled = enabled
	}
}

// NewDatabase creates a new database connection with pooling configured from cfg.
// Transactions are explicit: repositories run single statements unless wrapped
// in a TransactionScope.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		gormLogger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	for _, opt := range opts {
		opt(options)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 options.gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if options.traceEnabled {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable database tracing: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewDatabaseFromGorm wraps an existing GORM connection. Tests use this to
// point the repositories at sqlmock or sqlite.
func NewDatabaseFromGorm(db *gorm.DB) *Database {
	return &Database{db: db}
}

// DB returns the underlying GORM database instance
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats returns connection pool statistics
func (d *Database) Stats() (sql.DBStats, error) {
	sqlDB, err := d.db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// Transaction runs fn inside a database transaction
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}
