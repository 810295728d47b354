package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article represents one article in the corpus, identified by its external
// PMID. Articles are created on first ingest and never deleted by the core;
// later fetches only ever overwrite a field with a richer, non-empty value.
type Article struct {
	ID       string     `json:"id" gorm:"primaryKey;type:varchar(50)" validate:"required"`
	PMID     string     `json:"pmid" gorm:"uniqueIndex;type:varchar(50);not null" validate:"required"`
	Title    string     `json:"title" gorm:"type:text;not null" validate:"required,min=1"`
	Abstract *string    `json:"abstract,omitempty" gorm:"type:text"`
	Journal  *string    `json:"journal,omitempty" gorm:"type:varchar(500)"`
	DOI      *string    `json:"doi,omitempty" gorm:"type:varchar(255)"`
	PubDate  *time.Time `json:"pub_date,omitempty" gorm:"type:date;index"`

	Authors []Author `json:"authors,omitempty" gorm:"many2many:articles_authors;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Article) TableName() string {
	return "articles"
}

// BeforeCreate assigns an ID when the caller did not supply one.
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = "article_" + uuid.NewString()
	}
	return nil
}

// AgeYears returns the article's age in fractional years (365.25-day years) relative to the given
// reference time. Articles without a publication date have no defined age;
// callers must check HasPubDate first.
func (a *Article) AgeYears(now time.Time) float64 {
	if a.PubDate == nil {
		return 0
	}
	return now.Sub(*a.PubDate).Hours() / (24 * 365.25)
}

// HasPubDate returns true if the article carries a publication date.
func (a *Article) HasPubDate() bool {
	return a.PubDate != nil
}

// MergeNonEmpty overwrites fields on a with non-empty fields from incoming,
// leaving a's existing values untouched where incoming carries nothing. This
// is the merge rule the Store applies on every upsert_article call.
func (a *Article) MergeNonEmpty(incoming *Article) {
	if strings.TrimSpace(incoming.Title) != "" {
		a.Title = incoming.Title
	}
	if incoming.Abstract != nil && strings.TrimSpace(*incoming.Abstract) != "" {
		a.Abstract = incoming.Abstract
	}
	if incoming.Journal != nil && strings.TrimSpace(*incoming.Journal) != "" {
		a.Journal = incoming.Journal
	}
	if incoming.DOI != nil && strings.TrimSpace(*incoming.DOI) != "" {
		a.DOI = incoming.DOI
	}
	if incoming.PubDate != nil {
		a.PubDate = incoming.PubDate
	}
}

// ArticleFilter represents filters for article listing queries.
type ArticleFilter struct {
	PMIDs         []string   `json:"pmids,omitempty"`
	Journal       string     `json:"journal,omitempty"`
	PublishedFrom *time.Time `json:"published_from,omitempty"`
	PublishedTo   *time.Time `json:"published_to,omitempty"`
}

// Paging describes an offset-limit page of results.
type Paging struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=1,max=500"`
}

// NormalizeName case-folds and collapses whitespace in a full name, the
// normalization rule authors are deduplicated by across the corpus.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}
