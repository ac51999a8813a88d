package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/matching"
	"github.com/salesagent/salesagent/internal/model"
)

type memTenderSource struct {
	tenders []model.Tender
	err     error
	saved   []model.Tender
}

func (s *memTenderSource) Tenders(_ context.Context) ([]model.Tender, error) {
	return s.tenders, s.err
}

func (s *memTenderSource) SaveTenders(_ context.Context, tenders []model.Tender) error {
	s.saved = append(s.saved, tenders...)
	return nil
}

type memProductSource struct {
	products []model.Product
	err      error
}

func (s *memProductSource) Products(_ context.Context) ([]model.Product, error) {
	return s.products, s.err
}

type memMatchStore struct {
	saved   []model.Match
	saveErr error
}

func (s *memMatchStore) SaveMatches(_ context.Context, matches []model.Match) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, matches...)
	return nil
}

func (s *memMatchStore) Matches(_ context.Context) ([]model.Match, error) {
	return s.saved, nil
}

type memFeed struct {
	collection *model.TenderCollection
	err        error
	calls      int
}

func (f *memFeed) FetchTenders(_ context.Context) (*model.TenderCollection, error) {
	f.calls++
	return f.collection, f.err
}

func newTestService(t *testing.T, deps Deps) *Service {
	t.Helper()

	if deps.Agent == nil {
		agent, err := matching.New(matching.Config{MinScore: 1.0}, nil, zap.NewNop())
		require.NoError(t, err)
		deps.Agent = agent
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	svc, err := New(deps)
	require.NoError(t, err)
	return svc
}

var serviceTenders = []model.Tender{
	{ID: "t1", DisplayName: "Helpdesk services", SearchTags: []string{"helpdesk"}, MarketURL: "https://example.test/t1"},
}

var serviceProducts = []model.Product{
	{Name: "SupportDesk", Keywords: []string{"helpdesk"}},
}

func TestServiceRun(t *testing.T) {
	store := &memMatchStore{}
	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{tenders: serviceTenders},
		Products: &memProductSource{products: serviceProducts},
		Matches:  store,
	})

	result, err := svc.Run(context.Background(), RunOptions{Save: true})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, matching.StrategyRuleBased, result.Strategy)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "SupportDesk", result.Matches[0].MatchedProduct)
	assert.Len(t, store.saved, 1)
}

func TestServiceRunEmptyInputsIsNotAnError(t *testing.T) {
	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{},
		Products: &memProductSource{},
	})

	result, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestServiceRunFeedFallback(t *testing.T) {
	source := &memTenderSource{}
	feed := &memFeed{collection: &model.TenderCollection{Services: serviceTenders}}

	svc := newTestService(t, Deps{
		Tenders:  source,
		Products: &memProductSource{products: serviceProducts},
		Feed:     feed,
	})

	result, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, feed.calls)
	assert.Len(t, result.Matches, 1)
	// Fetched tenders are persisted back into the source.
	assert.Len(t, source.saved, 1)
}

func TestServiceRunFeedNotUsedWhenSourceHasTenders(t *testing.T) {
	feed := &memFeed{err: errors.New("must not be called")}

	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{tenders: serviceTenders},
		Products: &memProductSource{products: serviceProducts},
		Feed:     feed,
	})

	_, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, feed.calls)
}

func TestServiceRunExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	svc := newTestService(t, Deps{
		Tenders:   &memTenderSource{tenders: serviceTenders},
		Products:  &memProductSource{products: serviceProducts},
		OutputDir: dir,
	})

	result, err := svc.Run(context.Background(), RunOptions{Export: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.ExportPath)

	_, err = os.Stat(result.ExportPath)
	assert.NoError(t, err)
}

func TestServiceRunPropagatesSourceErrors(t *testing.T) {
	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{err: errors.New("boom")},
		Products: &memProductSource{products: serviceProducts},
	})

	_, err := svc.Run(context.Background(), RunOptions{})
	assert.Error(t, err)
}

func TestServiceRunPropagatesSaveErrors(t *testing.T) {
	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{tenders: serviceTenders},
		Products: &memProductSource{products: serviceProducts},
		Matches:  &memMatchStore{saveErr: errors.New("down")},
	})

	_, err := svc.Run(context.Background(), RunOptions{Save: true})
	assert.Error(t, err)
}

func TestServiceNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestServiceStats(t *testing.T) {
	store := &memMatchStore{saved: []model.Match{
		{TenderID: "t1", MatchedProduct: "A", Score: 10},
		{TenderID: "t2", MatchedProduct: "A", Score: 40},
		{TenderID: "t3", MatchedProduct: "B", Score: 70},
		{TenderID: "t4", MatchedProduct: "B", Score: 95},
	}}

	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{},
		Products: &memProductSource{},
		Matches:  store,
	})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalMatches)
	assert.Equal(t, 2, stats.ByProduct["A"])
	assert.Equal(t, 2, stats.ByProduct["B"])
	assert.Equal(t, 1, stats.ScoreDistribution["0-25"])
	assert.Equal(t, 1, stats.ScoreDistribution["26-50"])
	assert.Equal(t, 1, stats.ScoreDistribution["51-75"])
	assert.Equal(t, 1, stats.ScoreDistribution["76-100"])
}

func TestServiceStatsWithoutStore(t *testing.T) {
	svc := newTestService(t, Deps{
		Tenders:  &memTenderSource{},
		Products: &memProductSource{},
	})

	_, err := svc.Stats(context.Background())
	assert.Error(t, err)
}

func TestComputeStatsBucketBoundaries(t *testing.T) {
	stats := ComputeStats([]model.Match{
		{MatchedProduct: "A", Score: 25},
		{MatchedProduct: "A", Score: 25.5},
		{MatchedProduct: "A", Score: 50},
		{MatchedProduct: "A", Score: 100},
	})

	assert.Equal(t, 1, stats.ScoreDistribution["0-25"])
	assert.Equal(t, 2, stats.ScoreDistribution["26-50"])
	assert.Equal(t, 0, stats.ScoreDistribution["51-75"])
	assert.Equal(t, 1, stats.ScoreDistribution["76-100"])
}

func TestComputeStatsTopBucketCatchesUnboundedScores(t *testing.T) {
	// Rule-based scores have no upper bound (2.0 per matched keyword), so
	// the top bucket must absorb anything past its edge.
	stats := ComputeStats([]model.Match{
		{MatchedProduct: "A", Score: 120},
		{MatchedProduct: "A", Score: 100.5},
		{MatchedProduct: "A", Score: 80},
	})

	assert.Equal(t, 3, stats.ScoreDistribution["76-100"])

	counted := 0
	for _, n := range stats.ScoreDistribution {
		counted += n
	}
	assert.Equal(t, stats.TotalMatches, counted)
}
