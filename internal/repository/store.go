package repository

import (
	"context"
	"fmt"
	"log/slog"

	"litscope/internal/config"

	"gorm.io/gorm"
)

// store implements Store over a Database connection.
type store struct {
	db          *Database
	articleRepo ArticleRepository
	searchRepo  SearchRepository
	clusterRepo ClusterRepository
	logger      *slog.Logger
}

// NewStore opens the database and wires every repository against its
// connection pool.
func NewStore(cfg *config.Config, logger *slog.Logger) (Store, error) {
	db, err := NewDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &store{
		db:          db,
		articleRepo: NewArticleRepository(db.DB),
		searchRepo:  NewSearchRepository(db.DB),
		clusterRepo: NewClusterRepository(db.DB),
		logger:      logger,
	}, nil
}

func (s *store) Articles() ArticleRepository { return s.articleRepo }
func (s *store) Searches() SearchRepository  { return s.searchRepo }
func (s *store) Clusters() ClusterRepository { return s.clusterRepo }

func (s *store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }
func (s *store) Close() error                   { return s.db.Close() }

// Transaction runs fn within a single database transaction, rolling back on
// any returned error or panic.
func (s *store) Transaction(ctx context.Context, fn func(Transaction) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransaction{tx: tx})
	})
}

// gormTransaction implements Transaction over one *gorm.DB transaction
// handle, constructing fresh repositories scoped to it.
type gormTransaction struct {
	tx          *gorm.DB
	articleRepo ArticleRepository
	searchRepo  SearchRepository
	clusterRepo ClusterRepository
}

func (t *gormTransaction) Commit() error   { return t.tx.Commit().Error }
func (t *gormTransaction) Rollback() error { return t.tx.Rollback().Error }

func (t *gormTransaction) Articles() ArticleRepository {
	if t.articleRepo == nil {
		t.articleRepo = NewArticleRepository(t.tx)
	}
	return t.articleRepo
}

func (t *gormTransaction) Searches() SearchRepository {
	if t.searchRepo == nil {
		t.searchRepo = NewSearchRepository(t.tx)
	}
	return t.searchRepo
}

func (t *gormTransaction) Clusters() ClusterRepository {
	if t.clusterRepo == nil {
		t.clusterRepo = NewClusterRepository(t.tx)
	}
	return t.clusterRepo
}
