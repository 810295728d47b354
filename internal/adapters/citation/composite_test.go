package citation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litscope/internal/adapters/citation"
	"litscope/internal/models"
)

type fakeSource struct {
	name    models.CitationSource
	count   int
	countErr error
	series  []citation.YearCount
	seriesErr error
}

func (f *fakeSource) Name() models.CitationSource { return f.name }

func (f *fakeSource) CurrentCount(ctx context.Context, doiOrPMID string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeSource) YearlyCounts(ctx context.Context, doiOrPMID string) ([]citation.YearCount, error) {
	return f.series, f.seriesErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComposite_PrimarySucceedsWithPositiveCount(t *testing.T) {
	primary := &fakeSource{name: models.CitationSourceCrossRef, count: 5}
	secondary := &fakeSource{name: models.CitationSourceOpenAlex, count: 9}

	adapter := citation.New(primary, secondary, discardLogger())
	source, count, _, err := adapter.CurrentCount(context.Background(), "doi")
	require.NoError(t, err)
	assert.Equal(t, models.CitationSourceCrossRef, source)
	assert.Equal(t, 5, count)
}

func TestComposite_FallsBackWhenPrimaryIsZero(t *testing.T) {
	primary := &fakeSource{name: models.CitationSourceCrossRef, count: 0}
	secondary := &fakeSource{name: models.CitationSourceOpenAlex, count: 9}

	adapter := citation.New(primary, secondary, discardLogger())
	source, count, _, err := adapter.CurrentCount(context.Background(), "doi")
	require.NoError(t, err)
	assert.Equal(t, models.CitationSourceOpenAlex, source)
	assert.Equal(t, 9, count)
}

func TestComposite_FallsBackWhenPrimaryErrors(t *testing.T) {
	primary := &fakeSource{name: models.CitationSourceCrossRef, countErr: errors.New("boom")}
	secondary := &fakeSource{name: models.CitationSourceOpenAlex, count: 3}

	adapter := citation.New(primary, secondary, discardLogger())
	source, count, _, err := adapter.CurrentCount(context.Background(), "doi")
	require.NoError(t, err)
	assert.Equal(t, models.CitationSourceOpenAlex, source)
	assert.Equal(t, 3, count)
}

func TestComposite_BothFail_ReturnsZeroNoError(t *testing.T) {
	primary := &fakeSource{name: models.CitationSourceCrossRef, countErr: errors.New("boom")}
	secondary := &fakeSource{name: models.CitationSourceOpenAlex, countErr: errors.New("also boom")}

	adapter := citation.New(primary, secondary, discardLogger())
	source, count, _, err := adapter.CurrentCount(context.Background(), "doi")
	require.NoError(t, err)
	assert.Equal(t, models.CitationSourceOpenAlex, source)
	assert.Equal(t, 0, count)
}

func TestComposite_YearlyCounts_FallsBackOnEmptyPrimary(t *testing.T) {
	primary := &fakeSource{name: models.CitationSourceCrossRef}
	secondary := &fakeSource{name: models.CitationSourceOpenAlex, series: []citation.YearCount{{Year: 2020, Count: 4}}}

	adapter := citation.New(primary, secondary, discardLogger())
	series, err := adapter.YearlyCounts(context.Background(), "doi")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2020, series[0].Year)
}
