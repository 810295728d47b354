package citation

import (
	"context"
	"log/slog"
	"time"

	"litscope/internal/models"
)

// composite tries primary then falls back to secondary, per spec.md
// §4.3's "two sources are supported in sequence."
type composite struct {
	primary   Source
	secondary Source
	logger    *slog.Logger
}

// New builds the sequential primary-then-fallback Adapter.
func New(primary, secondary Source, logger *slog.Logger) Adapter {
	return &composite{primary: primary, secondary: secondary, logger: logger}
}

func (c *composite) CurrentCount(ctx context.Context, doiOrPMID string) (models.CitationSource, int, time.Time, error) {
	now := time.Now().UTC()

	count, err := c.primary.CurrentCount(ctx, doiOrPMID)
	if err == nil && count > 0 {
		return c.primary.Name(), count, now, nil
	}
	if err != nil {
		c.logger.Warn("primary citation source failed, falling back",
			slog.String("source", string(c.primary.Name())), slog.String("error", err.Error()))
	}

	count, err = c.secondary.CurrentCount(ctx, doiOrPMID)
	if err != nil {
		c.logger.Warn("secondary citation source failed",
			slog.String("source", string(c.secondary.Name())), slog.String("error", err.Error()))
		return c.secondary.Name(), 0, now, nil
	}
	return c.secondary.Name(), count, now, nil
}

func (c *composite) YearlyCounts(ctx context.Context, doiOrPMID string) ([]YearCount, error) {
	series, err := c.primary.YearlyCounts(ctx, doiOrPMID)
	if err == nil && len(series) > 0 {
		return series, nil
	}
	if err != nil {
		c.logger.Warn("primary yearly-counts lookup failed, falling back",
			slog.String("source", string(c.primary.Name())), slog.String("error", err.Error()))
	}

	series, err = c.secondary.YearlyCounts(ctx, doiOrPMID)
	if err != nil {
		c.logger.Warn("secondary yearly-counts lookup failed",
			slog.String("source", string(c.secondary.Name())), slog.String("error", err.Error()))
		return nil, nil
	}
	return series, nil
}
