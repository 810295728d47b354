package models

import "time"

// NoiseLabel is the cluster label reserved for unclustered ("noise")
// vectors. It is never persisted as a Cluster row.
const NoiseLabel = -1

// ArticleVector is the fixed-dimensional embedding derived from an
// article's title and abstract, plus its current cluster assignment.
// Exactly one row exists per article; it is written on ingest, and every
// later ingest of the same article recomputes it and resets ClusterLabel
// to NoiseLabel.
type ArticleVector struct {
	ArticleID    string    `json:"article_id" gorm:"primaryKey;type:varchar(50)"`
	Vector       []float32 `json:"vector" gorm:"serializer:json;not null"`
	ClusterLabel int       `json:"cluster_label" gorm:"not null;index;default:-1"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (ArticleVector) TableName() string {
	return "article_vectors"
}

// IsNoise returns true if the vector is not assigned to any cluster.
func (v *ArticleVector) IsNoise() bool {
	return v.ClusterLabel == NoiseLabel
}
