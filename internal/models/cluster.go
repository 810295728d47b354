package models

import "time"

// Cluster is one non-noise density cluster over the article-vector
// population. Its centroid, size and velocity are recomputed from scratch
// on every Cluster Manager pass; clusters with no members are deleted.
type Cluster struct {
	Label       int       `json:"label" gorm:"primaryKey"`
	Centroid    []float32 `json:"centroid" gorm:"serializer:json;not null"`
	Size        int       `json:"size" gorm:"not null" validate:"min=1"`
	Velocity    float64   `json:"velocity" gorm:"not null"`
	LastUpdated time.Time `json:"last_updated" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (Cluster) TableName() string {
	return "clusters"
}
