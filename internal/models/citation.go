package models

import "time"

// CitationSource enumerates the supported citation-count providers.
type CitationSource string

const (
	CitationSourceCrossRef  CitationSource = "crossref"
	CitationSourceOpenAlex  CitationSource = "openalex"
)

// CitationSnapshot carries the latest known total citation count for an
// (article, source) pair. A newer observation overwrites the prior one for
// the same pair; one row exists per source per article.
type CitationSnapshot struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	ArticleID  string         `json:"article_id" gorm:"type:varchar(50);not null;uniqueIndex:idx_citation_article_source"`
	Source     CitationSource `json:"source" gorm:"type:varchar(20);not null;uniqueIndex:idx_citation_article_source"`
	Count      int            `json:"count" gorm:"not null" validate:"min=0"`
	ObservedOn time.Time      `json:"observed_on" gorm:"type:date;not null"`
}

// TableName returns the table name for GORM.
func (CitationSnapshot) TableName() string {
	return "citations"
}

// YearlyCitation is one (article, year) count. The full set of rows for an
// article forms its citation trajectory; rewritten only by a full refetch.
type YearlyCitation struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	ArticleID string `json:"article_id" gorm:"type:varchar(50);not null;uniqueIndex:idx_yearly_article_year"`
	Year      int    `json:"year" gorm:"not null;uniqueIndex:idx_yearly_article_year"`
	Count     int    `json:"count" gorm:"not null" validate:"min=0"`
}

// TableName returns the table name for GORM.
func (YearlyCitation) TableName() string {
	return "citations_per_year"
}

// YearCount is an in-memory (year, count) pair used at the adapter and
// Trajectory Engine boundary, independent of the persisted row shape.
type YearCount struct {
	Year  int
	Count int
}
