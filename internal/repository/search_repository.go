package repository

import (
	"context"
	"time"

	"litscope/internal/errors"
	"litscope/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a SearchRepository bound to db.
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) CreateSearch(ctx context.Context, ideaText, keywordText string, maxResults int, dateRange models.DateRange) (uint, error) {
	search := models.Search{
		IdeaText:    ideaText,
		KeywordText: keywordText,
		MaxResults:  maxResults,
		DateFrom:    dateRange.From,
		DateTo:      dateRange.To,
		Status:      models.SearchStatusCreated,
	}

	if err := r.db.WithContext(ctx).Create(&search).Error; err != nil {
		return 0, errors.NewDatabaseError("create_search", err)
	}
	return search.ID, nil
}

func (r *searchRepository) UpdateSearchStatus(ctx context.Context, searchID uint, status models.SearchStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Search{}).Where("id = ?", searchID).Update("status", status)
	if result.Error != nil {
		return errors.NewDatabaseError("update_search_status", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("search not found", "search")
	}
	return nil
}

func (r *searchRepository) GetSearch(ctx context.Context, searchID uint) (*models.Search, error) {
	var search models.Search
	if err := r.db.WithContext(ctx).First(&search, "id = ?", searchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("search not found", "search")
		}
		return nil, errors.NewDatabaseError("get_search", err)
	}
	return &search, nil
}

func (r *searchRepository) ListSearches(ctx context.Context, paging models.Paging) ([]models.Search, error) {
	var searches []models.Search
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&searches).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list_searches", err)
	}
	return searches, nil
}

func (r *searchRepository) LinkSearchArticles(ctx context.Context, searchID uint, articleIDs []string) error {
	if len(articleIDs) == 0 {
		return nil
	}

	var search models.Search
	if err := r.db.WithContext(ctx).First(&search, "id = ?", searchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("search not found", "search")
		}
		return errors.NewDatabaseError("lookup_search", err)
	}

	articles := make([]models.Article, 0, len(articleIDs))
	for _, id := range articleIDs {
		articles = append(articles, models.Article{ID: id})
	}

	if err := r.db.WithContext(ctx).Model(&search).Association("Articles").Append(articles); err != nil {
		return errors.NewDatabaseError("link_search_articles", err)
	}
	return nil
}

func (r *searchRepository) ArticlesOfSearch(ctx context.Context, searchID uint) ([]models.Article, error) {
	var search models.Search
	err := r.db.WithContext(ctx).Preload("Articles").Preload("Articles.Authors").First(&search, "id = ?", searchID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("search not found", "search")
		}
		return nil, errors.NewDatabaseError("get_search_articles", err)
	}
	return search.Articles, nil
}

func (r *searchRepository) PutScore(ctx context.Context, searchID uint, raw models.RawScoreTriple, novelty, velocity, recency, overall float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		score := models.OpportunityScore{
			SearchID:              searchID,
			NoveltyScore:          novelty,
			CitationVelocityScore: velocity,
			RecencyScore:          recency,
			OverallScore:          overall,
			ComputedAt:            time.Now().UTC(),
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "search_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"novelty_score", "citation_velocity_score", "recency_score", "overall_score", "computed_at"}),
		}).Create(&score).Error
		if err != nil {
			return errors.NewDatabaseError("put_score", err)
		}

		history := models.ScoreHistory{
			SearchID:    searchID,
			NoveltyRaw:  raw.NoveltyRaw,
			CitationRaw: raw.CitationRaw,
			RecencyRaw:  raw.RecencyRaw,
			Timestamp:   score.ComputedAt,
		}
		if err := tx.Create(&history).Error; err != nil {
			return errors.NewDatabaseError("append_score_history", err)
		}

		return nil
	})
}

func (r *searchRepository) GetScore(ctx context.Context, searchID uint) (*models.OpportunityScore, error) {
	var score models.OpportunityScore
	if err := r.db.WithContext(ctx).First(&score, "search_id = ?", searchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("score not found", "opportunity_score")
		}
		return nil, errors.NewDatabaseError("get_score", err)
	}
	return &score, nil
}

func (r *searchRepository) RawScoreHistory(ctx context.Context) ([]models.RawScoreTriple, error) {
	var rows []models.ScoreHistory
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.NewDatabaseError("list_score_history", err)
	}

	out := make([]models.RawScoreTriple, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.RawScoreTriple{
			NoveltyRaw:  row.NoveltyRaw,
			CitationRaw: row.CitationRaw,
			RecencyRaw:  row.RecencyRaw,
		})
	}
	return out, nil
}
