// Package scoring implements the Scorer (C9): raw sub-scores for one
// Search, their empirical-CDF normalization against historical raw
// values, and the fixed convex combination into an overall score.
package scoring

import (
	"context"
	"math"
	"time"

	"litscope/internal/models"
	"litscope/internal/repository"
	"litscope/internal/trajectory"
)

// Weights are the Scorer's convex-combination weights, defaulting to
// 0.4/0.4/0.2 per spec.md §4.9; configuration may override them.
type Weights struct {
	Novelty  float64
	Velocity float64
	Recency  float64
}

// DefaultWeights returns the spec-mandated default combination.
func DefaultWeights() Weights {
	return Weights{Novelty: 0.4, Velocity: 0.4, Recency: 0.2}
}

// Raw carries one Search's three raw, pre-normalization sub-scores.
type Raw struct {
	Novelty  float64
	Velocity float64
	Recency  float64
}

// Normalized carries one Search's normalized sub-scores plus the
// overall combination.
type Normalized struct {
	Novelty  float64
	Velocity float64
	Recency  float64
	Overall  float64
}

// Scorer computes raw and normalized opportunity scores for a Search.
type Scorer struct {
	store      repository.Store
	weights    Weights
	recencyTau float64
}

// New creates a Scorer. recencyTauYears is the configured decay
// half-life for the recency sub-score (default 5 years per spec.md §4.9).
func New(store repository.Store, weights Weights, recencyTauYears float64) *Scorer {
	if recencyTauYears <= 0 {
		recencyTauYears = 5
	}
	return &Scorer{store: store, weights: weights, recencyTau: recencyTauYears}
}

// Score computes and persists the opportunity score for searchID. It is
// idempotent: re-running overwrites the score row and appends a new
// history row, per spec.md §4.9.
func (s *Scorer) Score(ctx context.Context, searchID uint) (Normalized, error) {
	raw, err := s.computeRaw(ctx, searchID)
	if err != nil {
		return Normalized{}, err
	}

	history, err := s.store.Searches().RawScoreHistory(ctx)
	if err != nil {
		return Normalized{}, err
	}

	normalized := s.normalize(raw, history)

	rawTriple := models.RawScoreTriple{NoveltyRaw: raw.Novelty, CitationRaw: raw.Velocity, RecencyRaw: raw.Recency}
	if err := s.store.Searches().PutScore(ctx, searchID, rawTriple, normalized.Novelty, normalized.Velocity, normalized.Recency, normalized.Overall); err != nil {
		return Normalized{}, err
	}

	return normalized, nil
}

func (s *Scorer) computeRaw(ctx context.Context, searchID uint) (Raw, error) {
	articles, err := s.store.Searches().ArticlesOfSearch(ctx, searchID)
	if err != nil {
		return Raw{}, err
	}

	novelty, err := s.noveltyRaw(ctx, searchID)
	if err != nil {
		return Raw{}, err
	}

	velocity, err := s.velocityRaw(ctx, articles)
	if err != nil {
		return Raw{}, err
	}

	recency := s.recencyRaw(articles)

	return Raw{Novelty: novelty, Velocity: velocity, Recency: recency}, nil
}

// noveltyRaw is the mean nearest-neighbor cosine distance from each
// vector in the search's set A to the nearest vector outside A. If A has
// fewer than 2 elements or the complement is empty, raw novelty is 1.0.
func (s *Scorer) noveltyRaw(ctx context.Context, searchID uint) (float64, error) {
	inSet, err := s.store.Articles().VectorsOfSearch(ctx, searchID)
	if err != nil {
		return 0, err
	}
	if len(inSet) < 2 {
		return 1.0, nil
	}

	all, err := s.store.Articles().AllVectors(ctx)
	if err != nil {
		return 0, err
	}

	inSetIDs := make(map[string]struct{}, len(inSet))
	for _, v := range inSet {
		inSetIDs[v.ArticleID] = struct{}{}
	}

	outside := make([]models.ArticleVector, 0, len(all))
	for _, v := range all {
		if _, ok := inSetIDs[v.ArticleID]; !ok {
			outside = append(outside, v)
		}
	}
	if len(outside) == 0 {
		return 1.0, nil
	}

	var sum float64
	for _, v := range inSet {
		best := math.Inf(1)
		for _, o := range outside {
			d := cosineDistance(v.Vector, o.Vector)
			if d < best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(inSet)), nil
}

// velocityRaw is the mean forward citation slope over A, clipped below
// at 0.
func (s *Scorer) velocityRaw(ctx context.Context, articles []models.Article) (float64, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	var sum float64
	for _, a := range articles {
		series, err := s.store.Articles().YearlyCitations(ctx, a.ID)
		if err != nil {
			return 0, err
		}
		sum += trajectory.ForwardSlope(series)
	}

	mean := sum / float64(len(articles))
	if mean < 0 {
		return 0, nil
	}
	return mean, nil
}

// recencyRaw is the mean of exp(-age_years/tau) over A; articles without
// a pub_date contribute 0.
func (s *Scorer) recencyRaw(articles []models.Article) float64 {
	if len(articles) == 0 {
		return 0
	}

	now := time.Now().UTC()
	var sum float64
	for _, a := range articles {
		if !a.HasPubDate() {
			continue
		}
		sum += math.Exp(-a.AgeYears(now) / s.recencyTau)
	}
	return sum / float64(len(articles))
}

// normalize replaces each raw value with its empirical CDF position
// within history, appending the new search's values to history *before*
// normalizing so at least one sample always exists, then applies the
// fixed convex combination.
func (s *Scorer) normalize(raw Raw, history []models.RawScoreTriple) Normalized {
	history = append(append([]models.RawScoreTriple{}, history...), models.RawScoreTriple{
		NoveltyRaw:  raw.Novelty,
		CitationRaw: raw.Velocity,
		RecencyRaw:  raw.Recency,
	})

	novelty := empiricalCDF(raw.Novelty, history, func(t models.RawScoreTriple) float64 { return t.NoveltyRaw })
	velocity := empiricalCDF(raw.Velocity, history, func(t models.RawScoreTriple) float64 { return t.CitationRaw })
	recency := empiricalCDF(raw.Recency, history, func(t models.RawScoreTriple) float64 { return t.RecencyRaw })

	overall := s.weights.Novelty*novelty + s.weights.Velocity*velocity + s.weights.Recency*recency

	return Normalized{
		Novelty:  novelty,
		Velocity: velocity,
		Recency:  recency,
		Overall:  clamp01(overall),
	}
}

func empiricalCDF(x float64, history []models.RawScoreTriple, component func(models.RawScoreTriple) float64) float64 {
	total := len(history)
	if total == 0 {
		return 0
	}

	count := 0
	for _, h := range history {
		if component(h) <= x {
			count++
		}
	}

	value := float64(count) / float64(max(1, total))
	return clamp01(value)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - cosine
}
