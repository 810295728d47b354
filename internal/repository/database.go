package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"litscope/internal/config"
	"litscope/internal/errors"
	"litscope/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database represents the database connection and operations.
type Database struct {
	*gorm.DB
	config *config.Config
	logger *slog.Logger
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Type        string
	DSN         string
	MaxConns    int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	AutoMigrate bool
}

// NewDatabase creates a new database connection.
func NewDatabase(cfg *config.Config, logger *slog.Logger) (*Database, error) {
	dbConfig, err := buildDatabaseConfig(cfg)
	if err != nil {
		return nil, errors.NewDatabaseError("config_validation", err)
	}

	var dialector gorm.Dialector

	switch dbConfig.Type {
	case "postgres":
		dialector = postgres.Open(dbConfig.DSN)
	case "sqlite":
		dialector = sqlite.Open(dbConfig.DSN)
	default:
		return nil, errors.NewValidationError("unsupported database type", "type", dbConfig.Type)
	}

	gormConfig := &gorm.Config{
		Logger: NewGormLogger(logger),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.NewDatabaseError("connection", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.NewDatabaseError("connection_pool", err)
	}

	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetConnMaxLifetime(dbConfig.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(dbConfig.MaxIdleTime)

	database := &Database{
		DB:     db,
		config: cfg,
		logger: logger,
	}

	if dbConfig.AutoMigrate {
		if err := database.Migrate(); err != nil {
			return nil, errors.NewDatabaseError("migration", err)
		}
	}

	logger.Info("database connection established",
		slog.String("type", dbConfig.Type),
		slog.Int("max_conns", dbConfig.MaxConns),
		slog.Int("max_idle", dbConfig.MaxIdle))

	return database, nil
}

// Migrate runs database migrations for every entity in the data model.
func (d *Database) Migrate() error {
	entities := []interface{}{
		&models.Article{},
		&models.Author{},
		&models.CitationSnapshot{},
		&models.YearlyCitation{},
		&models.ArticleVector{},
		&models.Cluster{},
		&models.Search{},
		&models.OpportunityScore{},
		&models.ScoreHistory{},
	}

	for _, entity := range entities {
		if err := d.AutoMigrate(entity); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", entity, err)
		}
	}

	if err := d.createCustomIndexes(); err != nil {
		return fmt.Errorf("failed to create custom indexes: %w", err)
	}

	d.logger.Info("database migration completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM's struct tags cannot express.
func (d *Database) createCustomIndexes() error {
	var indexes []string

	switch d.config.Database.Type {
	case "postgres":
		indexes = []string{
			"CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date DESC NULLS LAST)",
			"CREATE INDEX IF NOT EXISTS idx_vectors_cluster_label ON article_vectors (cluster_label) WHERE cluster_label >= 0",
			"CREATE INDEX IF NOT EXISTS idx_citations_per_year_article ON citations_per_year (article_id, year)",
		}
	case "sqlite":
		indexes = []string{
			"CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date DESC)",
			"CREATE INDEX IF NOT EXISTS idx_vectors_cluster_label ON article_vectors (cluster_label)",
			"CREATE INDEX IF NOT EXISTS idx_citations_per_year_article ON citations_per_year (article_id, year)",
		}
	default:
		indexes = []string{
			"CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date)",
		}
	}

	for _, indexSQL := range indexes {
		if err := d.Exec(indexSQL).Error; err != nil {
			d.logger.Warn("failed to create index", slog.String("sql", indexSQL), slog.String("error", err.Error()))
		}
	}

	return nil
}

// Ping checks the database connection.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithContext returns a new DB instance with context.
func (d *Database) WithContext(ctx context.Context) *gorm.DB {
	return d.DB.WithContext(ctx)
}

// Transaction executes a function within a database transaction.
func (d *Database) Transaction(ctx context.Context, fn func(*gorm.DB) error) error {
	return d.WithContext(ctx).Transaction(fn)
}

// GetStats returns database connection pool statistics.
func (d *Database) GetStats() (map[string]interface{}, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}

	stats := sqlDB.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}, nil
}

// buildDatabaseConfig builds database configuration from app config.
func buildDatabaseConfig(cfg *config.Config) (*DatabaseConfig, error) {
	dbConfig := &DatabaseConfig{
		Type: cfg.Database.Type,
	}

	switch cfg.Database.Type {
	case "postgres":
		dbConfig.DSN = cfg.Database.PostgreSQL.DSN
		dbConfig.MaxConns = cfg.Database.PostgreSQL.MaxConns
		dbConfig.MaxIdle = cfg.Database.PostgreSQL.MaxIdle
		dbConfig.AutoMigrate = cfg.Database.PostgreSQL.AutoMigrate

		if cfg.Database.PostgreSQL.MaxLifetime != "" {
			duration, err := time.ParseDuration(cfg.Database.PostgreSQL.MaxLifetime)
			if err != nil {
				return nil, fmt.Errorf("invalid max_lifetime: %w", err)
			}
			dbConfig.MaxLifetime = duration
		} else {
			dbConfig.MaxLifetime = time.Hour
		}

		if cfg.Database.PostgreSQL.MaxIdleTime != "" {
			duration, err := time.ParseDuration(cfg.Database.PostgreSQL.MaxIdleTime)
			if err != nil {
				return nil, fmt.Errorf("invalid max_idle_time: %w", err)
			}
			dbConfig.MaxIdleTime = duration
		} else {
			dbConfig.MaxIdleTime = 30 * time.Minute
		}

	case "sqlite":
		dbConfig.DSN = cfg.Database.SQLite.Path
		dbConfig.MaxConns = 1
		dbConfig.MaxIdle = 1
		dbConfig.MaxLifetime = 0
		dbConfig.MaxIdleTime = 0
		dbConfig.AutoMigrate = cfg.Database.SQLite.AutoMigrate

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if dbConfig.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	return dbConfig, nil
}

// GormLogger adapts slog to the GORM logger interface.
type GormLogger struct {
	logger *slog.Logger
}

// NewGormLogger creates a new GORM logger.
func NewGormLogger(logger *slog.Logger) logger.Interface {
	return &GormLogger{
		logger: logger,
	}
}

// LogMode sets the log mode (ignored, using slog level).
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

// Info logs info level messages.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
}

// Warn logs warning level messages.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

// Error logs error level messages.
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

// Trace logs SQL traces.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	args := []any{
		slog.Duration("elapsed", elapsed),
		slog.Int64("rows", rows),
		slog.String("sql", sql),
	}

	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		l.logger.ErrorContext(ctx, "SQL query failed", args...)
	} else {
		l.logger.DebugContext(ctx, "SQL query executed", args...)
	}
}
