package models

import "time"

// SearchStatus is the lifecycle state of a Search.
type SearchStatus string

const (
	SearchStatusCreated       SearchStatus = "created"
	SearchStatusIngesting     SearchStatus = "ingesting"
	SearchStatusIngested      SearchStatus = "ingested"
	SearchStatusScoring       SearchStatus = "scoring"
	SearchStatusScored        SearchStatus = "scored"
	SearchStatusScoringFailed SearchStatus = "scoring_failed"
)

// Search is one idea submitted to the pipeline, identified by a
// monotonically increasing integer ID.
type Search struct {
	ID          uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	IdeaText    string       `json:"idea_text" gorm:"type:text;not null"`
	KeywordText string       `json:"keyword_text" gorm:"type:text;not null"`
	MaxResults  int          `json:"max_results" gorm:"not null" validate:"min=1"`
	DateFrom    *time.Time   `json:"date_from,omitempty" gorm:"type:date"`
	DateTo      *time.Time   `json:"date_to,omitempty" gorm:"type:date"`
	Status      SearchStatus `json:"status" gorm:"type:varchar(20);not null;default:'created';index"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`

	Articles []Article `json:"articles,omitempty" gorm:"many2many:search_articles;"`
}

// TableName returns the table name for GORM.
func (Search) TableName() string {
	return "searches"
}

// DateRange is the optional publication-date filter attached to a search.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// OpportunityScore is one-to-one with a Search; absent until background
// scoring has completed.
type OpportunityScore struct {
	SearchID              uint      `json:"search_id" gorm:"primaryKey"`
	NoveltyScore          float64   `json:"novelty_score" gorm:"not null" validate:"min=0,max=1"`
	CitationVelocityScore float64   `json:"citation_velocity_score" gorm:"not null" validate:"min=0,max=1"`
	RecencyScore          float64   `json:"recency_score" gorm:"not null" validate:"min=0,max=1"`
	OverallScore          float64   `json:"overall_score" gorm:"not null" validate:"min=0,max=1"`
	ComputedAt            time.Time `json:"computed_at" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (OpportunityScore) TableName() string {
	return "opportunity_scores"
}

// ScoreHistory carries the raw, pre-normalization sub-scores of one Search.
// Rows are never updated once written; the Scorer reads the full history to
// percentile-rank a new search's raw values.
type ScoreHistory struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SearchID    uint      `json:"search_id" gorm:"not null;index"`
	NoveltyRaw  float64   `json:"novelty_raw" gorm:"not null"`
	CitationRaw float64   `json:"citation_raw" gorm:"not null"`
	RecencyRaw  float64   `json:"recency_raw" gorm:"not null"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (ScoreHistory) TableName() string {
	return "search_history"
}

// RawScoreTriple is one historical (novelty, citation, recency) raw
// observation, as read back by raw_score_history.
type RawScoreTriple struct {
	NoveltyRaw  float64
	CitationRaw float64
	RecencyRaw  float64
}
