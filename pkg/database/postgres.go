package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection pool and query logging.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	Debug           bool
}

func DefaultOptions() Options {
	return Options{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   time.Second,
	}
}

// Connect opens a PostgreSQL connection through GORM. SQL logging goes to the
// given zerolog logger and every query is traced.
func Connect(dsn string, log zerolog.Logger, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // pgbouncer transaction mode does not support prepared statements
	}), GormConfig(log, opts))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("setup otel plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	log.Info().Msg("database connection established")
	return db, nil
}

// GormConfig is shared by every dialector the application opens so that
// timestamps and error translation behave the same in tests.
func GormConfig(log zerolog.Logger, opts Options) *gorm.Config {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	return &gorm.Config{
		Logger: logger.New(&log, logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt:    false,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}
