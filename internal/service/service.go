// Package service orchestrates matching runs: loading tenders and
// products, executing the selected agent, and persisting or exporting the
// results.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/matching"
	"github.com/salesagent/salesagent/internal/metrics"
	"github.com/salesagent/salesagent/internal/model"
	"github.com/salesagent/salesagent/internal/store"
)

// TenderSource yields the tender snapshot for a run.
type TenderSource interface {
	Tenders(ctx context.Context) ([]model.Tender, error)
}

// tenderSaver is implemented by sources that can persist tenders fetched
// from the live feed fallback.
type tenderSaver interface {
	SaveTenders(ctx context.Context, tenders []model.Tender) error
}

// ProductSource yields the product catalog for a run.
type ProductSource interface {
	Products(ctx context.Context) ([]model.Product, error)
}

// MatchStore persists and reads back match history.
type MatchStore interface {
	SaveMatches(ctx context.Context, matches []model.Match) error
	Matches(ctx context.Context) ([]model.Match, error)
}

// TenderFeed is the live listing fallback used when the primary tender
// source is empty.
type TenderFeed interface {
	FetchTenders(ctx context.Context) (*model.TenderCollection, error)
}

// Deps aggregates the collaborators of one matching service. Matches and
// Feed are optional.
type Deps struct {
	Agent     matching.Agent
	Tenders   TenderSource
	Products  ProductSource
	Matches   MatchStore
	Feed      TenderFeed
	OutputDir string
	Logger    *zap.Logger
}

type Service struct {
	deps Deps
}

// RunOptions controls what happens to the matches after the agent is done.
type RunOptions struct {
	Save   bool
	Export bool
}

// Result describes one completed matching run.
type Result struct {
	RunID      string
	Strategy   string
	Matches    []model.Match
	Duration   time.Duration
	ExportPath string
}

func New(deps Deps) (*Service, error) {
	if deps.Agent == nil {
		return nil, errors.New("matching agent is required")
	}
	if deps.Tenders == nil || deps.Products == nil {
		return nil, errors.New("tender and product sources are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{deps: deps}, nil
}

// Run executes the complete matching workflow. Empty inputs are a valid
// no-op result, not an error; the caller decides whether that is an
// application-level failure.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	runID := uuid.NewString()
	log := s.deps.Logger.With(
		zap.String("run_id", runID),
		zap.String("strategy", s.deps.Agent.Name()),
	)

	started := time.Now()

	tenders, err := s.loadTenders(ctx, log)
	if err != nil {
		return nil, err
	}

	products, err := s.deps.Products.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	log.Info("starting matching run",
		zap.Int("tenders", len(tenders)),
		zap.Int("products", len(products)),
	)

	matches, err := s.deps.Agent.Analyze(ctx, tenders, products)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	result := &Result{
		RunID:    runID,
		Strategy: s.deps.Agent.Name(),
		Matches:  matches,
		Duration: time.Since(started),
	}

	metrics.MatchingRunDuration.WithLabelValues(result.Strategy).Observe(result.Duration.Seconds())

	log.Info("matching run complete",
		zap.Int("matches", len(matches)),
		zap.Duration("duration", result.Duration),
	)

	if opts.Save && len(matches) > 0 {
		if s.deps.Matches == nil {
			log.Warn("no match store configured, skipping save")
		} else if err := s.deps.Matches.SaveMatches(ctx, matches); err != nil {
			return nil, fmt.Errorf("save matches: %w", err)
		}
	}

	if opts.Export && len(matches) > 0 {
		path, err := store.ExportMatches(s.deps.OutputDir, runID, matches)
		if err != nil {
			return nil, fmt.Errorf("export matches: %w", err)
		}
		result.ExportPath = path
		log.Info("matches exported", zap.String("path", path))
	}

	return result, nil
}

// loadTenders reads the primary source and falls back to the live feed
// when it is empty.
func (s *Service) loadTenders(ctx context.Context, log *zap.Logger) ([]model.Tender, error) {
	tenders, err := s.deps.Tenders.Tenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tenders: %w", err)
	}

	if len(tenders) > 0 || s.deps.Feed == nil {
		return tenders, nil
	}

	log.Info("tender source is empty, fetching from feed")

	collection, err := s.deps.Feed.FetchTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tender feed: %w", err)
	}

	if saver, ok := s.deps.Tenders.(tenderSaver); ok && collection.Len() > 0 {
		if err := saver.SaveTenders(ctx, collection.Services); err != nil {
			log.Warn("saving fetched tenders failed", zap.Error(err))
		}
	}

	return collection.Services, nil
}
