package repository

import (
	"context"
	"time"

	"litscope/internal/errors"
	"litscope/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// articleRepository implements ArticleRepository over a single *gorm.DB.
// A repository constructed on the Database's connection pool is used
// outside a transaction; one constructed on a *gorm.DB handed in by
// Store.Transaction is scoped to that transaction.
type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates an ArticleRepository bound to db.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) UpsertArticle(ctx context.Context, article *models.Article) (string, bool, error) {
	var existing models.Article
	err := r.db.WithContext(ctx).Where("pmid = ?", article.PMID).First(&existing).Error

	switch {
	case err == nil:
		existing.MergeNonEmpty(article)
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return "", false, errors.NewDatabaseError("update_article", err)
		}
		return existing.ID, false, nil

	case err == gorm.ErrRecordNotFound:
		if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
			if errors.IsDuplicateKeyError(err) {
				return r.UpsertArticle(ctx, article)
			}
			return "", false, errors.NewDatabaseError("create_article", err)
		}
		return article.ID, true, nil

	default:
		return "", false, errors.NewDatabaseError("lookup_article", err)
	}
}

func (r *articleRepository) AttachAuthors(ctx context.Context, articleID string, normalizedNames []string) error {
	if len(normalizedNames) == 0 {
		return nil
	}

	var article models.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", articleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("article not found", "article")
		}
		return errors.NewDatabaseError("lookup_article_for_authors", err)
	}

	authors := make([]models.Author, 0, len(normalizedNames))
	for _, name := range normalizedNames {
		normalized := models.NormalizeName(name)
		if normalized == "" {
			continue
		}

		var author models.Author
		err := r.db.WithContext(ctx).Where("normalized_name = ?", normalized).First(&author).Error
		switch {
		case err == nil:
			authors = append(authors, author)
		case err == gorm.ErrRecordNotFound:
			author = models.Author{NormalizedName: normalized, DisplayName: name}
			if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "normalized_name"}},
				DoNothing: true,
			}).Create(&author).Error; err != nil {
				return errors.NewDatabaseError("create_author", err)
			}
			if author.ID == "" {
				if err := r.db.WithContext(ctx).Where("normalized_name = ?", normalized).First(&author).Error; err != nil {
					return errors.NewDatabaseError("reload_author", err)
				}
			}
			authors = append(authors, author)
		default:
			return errors.NewDatabaseError("lookup_author", err)
		}
	}

	if err := r.db.WithContext(ctx).Model(&article).Association("Authors").Append(authors); err != nil {
		return errors.NewDatabaseError("attach_authors", err)
	}
	return nil
}

func (r *articleRepository) RecordCitationSnapshot(ctx context.Context, articleID string, source models.CitationSource, count int, observedOn time.Time) error {
	snapshot := models.CitationSnapshot{
		ArticleID:  articleID,
		Source:     source,
		Count:      count,
		ObservedOn: observedOn,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "observed_on"}),
	}).Create(&snapshot).Error
	if err != nil {
		return errors.NewDatabaseError("record_citation_snapshot", err)
	}
	return nil
}

func (r *articleRepository) RecordYearlyCitations(ctx context.Context, articleID string, series []models.YearCount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", articleID).Delete(&models.YearlyCitation{}).Error; err != nil {
			return errors.NewDatabaseError("clear_yearly_citations", err)
		}

		if len(series) == 0 {
			return nil
		}

		rows := make([]models.YearlyCitation, 0, len(series))
		for _, yc := range series {
			rows = append(rows, models.YearlyCitation{ArticleID: articleID, Year: yc.Year, Count: yc.Count})
		}

		if err := tx.Create(&rows).Error; err != nil {
			return errors.NewDatabaseError("insert_yearly_citations", err)
		}
		return nil
	})
}

func (r *articleRepository) UpsertVector(ctx context.Context, articleID string, vector []float32, clusterLabel *int) error {
	label := models.NoiseLabel
	if clusterLabel != nil {
		label = *clusterLabel
	}

	av := models.ArticleVector{
		ArticleID:    articleID,
		Vector:       vector,
		ClusterLabel: label,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vector", "cluster_label", "updated_at"}),
	}).Create(&av).Error
	if err != nil {
		return errors.NewDatabaseError("upsert_vector", err)
	}
	return nil
}

func (r *articleRepository) GetArticle(ctx context.Context, pmid string) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Preload("Authors").Where("pmid = ?", pmid).First(&article).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("article not found", "article")
		}
		return nil, errors.NewDatabaseError("get_article", err)
	}
	return &article, nil
}

func (r *articleRepository) ListArticles(ctx context.Context, paging models.Paging) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Order("pub_date DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&articles).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list_articles", err)
	}
	return articles, nil
}

func (r *articleRepository) YearlyCitations(ctx context.Context, articleID string) ([]models.YearCount, error) {
	var rows []models.YearlyCitation
	if err := r.db.WithContext(ctx).Where("article_id = ?", articleID).Order("year ASC").Find(&rows).Error; err != nil {
		return nil, errors.NewDatabaseError("get_yearly_citations", err)
	}

	out := make([]models.YearCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.YearCount{Year: row.Year, Count: row.Count})
	}
	return out, nil
}

func (r *articleRepository) AllVectors(ctx context.Context) ([]models.ArticleVector, error) {
	var vectors []models.ArticleVector
	if err := r.db.WithContext(ctx).Find(&vectors).Error; err != nil {
		return nil, errors.NewDatabaseError("list_all_vectors", err)
	}
	return vectors, nil
}

func (r *articleRepository) VectorsOfSearch(ctx context.Context, searchID uint) ([]models.ArticleVector, error) {
	var vectors []models.ArticleVector
	err := r.db.WithContext(ctx).
		Joins("JOIN search_articles sa ON sa.article_id = article_vectors.article_id").
		Where("sa.search_id = ?", searchID).
		Find(&vectors).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list_search_vectors", err)
	}
	return vectors, nil
}
