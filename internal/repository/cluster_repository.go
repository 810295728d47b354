package repository

import (
	"context"

	"litscope/internal/errors"
	"litscope/internal/models"

	"gorm.io/gorm"
)

type clusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a ClusterRepository bound to db.
func NewClusterRepository(db *gorm.DB) ClusterRepository {
	return &clusterRepository{db: db}
}

func (r *clusterRepository) ReplaceClusters(ctx context.Context, clusters []models.Cluster) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Cluster{}).Error; err != nil {
			return errors.NewDatabaseError("clear_clusters", err)
		}

		if len(clusters) == 0 {
			return nil
		}

		if err := tx.Create(&clusters).Error; err != nil {
			return errors.NewDatabaseError("insert_clusters", err)
		}
		return nil
	})
}

func (r *clusterRepository) ListClusters(ctx context.Context) ([]models.Cluster, error) {
	var clusters []models.Cluster
	if err := r.db.WithContext(ctx).Order("label ASC").Find(&clusters).Error; err != nil {
		return nil, errors.NewDatabaseError("list_clusters", err)
	}
	return clusters, nil
}
