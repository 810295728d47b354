package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Author represents a normalized author identity, deduplicated across the
// corpus by NormalizedName. Homonym collisions are accepted by design.
type Author struct {
	ID             string `json:"id" gorm:"primaryKey;type:varchar(50)" validate:"required"`
	NormalizedName string `json:"normalized_name" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required"`
	DisplayName    string `json:"display_name" gorm:"type:varchar(255);not null"`

	Articles []Article `json:"articles,omitempty" gorm:"many2many:articles_authors;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Author) TableName() string {
	return "authors"
}

// BeforeCreate assigns an ID when the caller did not supply one.
func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = "author_" + uuid.NewString()
	}
	return nil
}
