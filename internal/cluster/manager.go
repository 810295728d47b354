// Package cluster implements the Cluster Manager (C7): recomputing a
// deterministic clustering of the full article-vector population on
// every pass.
//
// No package in the example corpus implements UMAP/HDBSCAN, so the
// projection step is a deterministic random projection and the
// clustering step is a deterministic density-grid pass, seeded so two
// runs over the same vector set always produce the same labeling.
package cluster

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"litscope/internal/models"
	"litscope/internal/repository"
	"litscope/internal/trajectory"
)

// Config holds the clustering parameters from spec.md §6 (`cluster_min_size`,
// `cluster_random_seed`); `cluster_epsilon`/`projection_dim` are additional
// knobs the density-grid substitute needs.
type Config struct {
	MinSize       int
	RandomSeed    int64
	Epsilon       float64
	ProjectionDim int
}

// Manager owns the exclusive clustering lock and recomputes the full
// clustering on each Run, per spec.md §4.7.
type Manager struct {
	store  repository.Store
	cfg    Config
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a cluster.Manager.
func New(store repository.Store, cfg Config, logger *slog.Logger) *Manager {
	if cfg.MinSize <= 0 {
		cfg.MinSize = 5
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.35
	}
	if cfg.ProjectionDim <= 0 {
		cfg.ProjectionDim = 8
	}
	return &Manager{store: store, cfg: cfg, logger: logger}
}

// Run recomputes the clustering from scratch over every current article
// vector. Concurrent ingests are permitted during a Run; their new
// vectors are picked up on the next pass.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vectors, err := m.store.Articles().AllVectors(ctx)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return m.store.Clusters().ReplaceClusters(ctx, nil)
	}

	projected := project(vectors, m.cfg.ProjectionDim, m.cfg.RandomSeed)
	labels := densityGrid(projected, m.cfg.Epsilon, m.cfg.MinSize)

	if err := m.persistLabels(ctx, vectors, labels); err != nil {
		return err
	}

	clusters, err := m.buildClusters(ctx, vectors, labels)
	if err != nil {
		return err
	}

	return m.store.Clusters().ReplaceClusters(ctx, clusters)
}

func (m *Manager) persistLabels(ctx context.Context, vectors []models.ArticleVector, labels []int) error {
	for idx, v := range vectors {
		label := labels[idx]
		if err := m.store.Articles().UpsertVector(ctx, v.ArticleID, v.Vector, &label); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) buildClusters(ctx context.Context, vectors []models.ArticleVector, labels []int) ([]models.Cluster, error) {
	membersByLabel := make(map[int][]int)
	for idx, label := range labels {
		if label == models.NoiseLabel {
			continue
		}
		membersByLabel[label] = append(membersByLabel[label], idx)
	}

	clusterLabels := make([]int, 0, len(membersByLabel))
	for label := range membersByLabel {
		clusterLabels = append(clusterLabels, label)
	}
	sort.Ints(clusterLabels)

	clusters := make([]models.Cluster, 0, len(clusterLabels))
	for _, label := range clusterLabels {
		memberIdx := membersByLabel[label]
		centroid := centroidOf(vectors, memberIdx)
		velocity, err := m.meanVelocity(ctx, vectors, memberIdx)
		if err != nil {
			return nil, err
		}

		clusters = append(clusters, models.Cluster{
			Label:       label,
			Centroid:    centroid,
			Size:        len(memberIdx),
			Velocity:    velocity,
			LastUpdated: time.Now().UTC(),
		})
	}

	return clusters, nil
}

func (m *Manager) meanVelocity(ctx context.Context, vectors []models.ArticleVector, memberIdx []int) (float64, error) {
	if len(memberIdx) == 0 {
		return 0, nil
	}

	var sum float64
	for _, idx := range memberIdx {
		series, err := m.store.Articles().YearlyCitations(ctx, vectors[idx].ArticleID)
		if err != nil {
			return 0, err
		}
		sum += trajectory.ForwardSlope(series)
	}
	return sum / float64(len(memberIdx)), nil
}

func centroidOf(vectors []models.ArticleVector, memberIdx []int) []float32 {
	if len(memberIdx) == 0 {
		return nil
	}
	dim := len(vectors[memberIdx[0]].Vector)
	sum := make([]float64, dim)

	for _, idx := range memberIdx {
		for d, val := range vectors[idx].Vector {
			sum[d] += float64(val)
		}
	}

	centroid := make([]float32, dim)
	for d := range sum {
		centroid[d] = float32(sum[d] / float64(len(memberIdx)))
	}
	return centroid
}

// project performs a deterministic random projection of each article
// vector down to projectionDim dimensions, using a per-run source seeded
// from seed so the result is reproducible but never touches the global
// rand generator.
func project(vectors []models.ArticleVector, projectionDim int, seed int64) [][]float64 {
	if len(vectors) == 0 {
		return nil
	}

	sourceDim := len(vectors[0].Vector)
	if projectionDim > sourceDim {
		projectionDim = sourceDim
	}

	rng := rand.New(rand.NewSource(seed))
	projection := make([][]float64, projectionDim)
	for i := range projection {
		row := make([]float64, sourceDim)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		projection[i] = row
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		point := make([]float64, projectionDim)
		for d := 0; d < projectionDim; d++ {
			var acc float64
			for j, val := range v.Vector {
				acc += projection[d][j] * float64(val)
			}
			point[d] = acc
		}
		out[i] = point
	}
	return out
}

// densityGrid assigns cluster labels to points in a lower-dimensional
// projection. A point is a core point if at least minSize points
// (including itself) lie within epsilon of it; core points within
// epsilon of each other share a label, and every other point is labeled
// NoiseLabel. The scan order is index order over the input slice, which
// is itself derived deterministically from project, so labeling is
// reproducible for a fixed seed.
func densityGrid(points [][]float64, epsilon float64, minSize int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = models.NoiseLabel
	}

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && euclidean(points[i], points[j]) <= epsilon {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	nextLabel := 0
	visited := make([]bool, n)

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		if len(neighbors[i])+1 < minSize {
			continue
		}

		label := nextLabel
		nextLabel++
		labels[i] = label

		queue := append([]int{}, neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == models.NoiseLabel {
				labels[j] = label
			}
			if visited[j] {
				continue
			}
			visited[j] = true

			if len(neighbors[j])+1 >= minSize {
				queue = append(queue, neighbors[j]...)
			}
		}
	}

	return labels
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
