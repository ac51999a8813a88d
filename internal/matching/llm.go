package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salesagent/salesagent/internal/ai"
	"github.com/salesagent/salesagent/internal/logger"
	"github.com/salesagent/salesagent/internal/metrics"
	"github.com/salesagent/salesagent/internal/model"
)

//go:embed prompt.md
var promptTemplate string

//go:embed llm_result_schema.json
var resultSchemaJSON string

const previewLogLength = 200

// promptTender is the reduced tender representation serialized into the
// prompt.
type promptTender struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SLA         string   `json:"sla,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type promptProduct struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
}

// llmAgent partitions tenders into fixed-size batches and asks the
// generator to match each batch against the entire product set in one
// call. Batch failures are local: a failed batch contributes zero matches
// and the run continues.
type llmAgent struct {
	generator   ai.Generator
	minScore    float64
	batchSize   int
	timeout     time.Duration
	concurrency int
	schema      *gojsonschema.Schema
	logger      *zap.Logger
}

func newLLMAgent(cfg Config, generator ai.Generator, log *zap.Logger) *llmAgent {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchemaJSON))
	if err != nil {
		// The schema is embedded; failing to compile it is a programming
		// error, not a runtime condition.
		panic(fmt.Sprintf("compile llm result schema: %v", err))
	}

	return &llmAgent{
		generator:   generator,
		minScore:    cfg.MinScore,
		batchSize:   cfg.BatchSize,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		schema:      schema,
		logger: log.With(
			zap.String("strategy", StrategyAI),
			zap.String("model", generator.Model()),
		),
	}
}

func (a *llmAgent) Name() string { return StrategyAI }

func (a *llmAgent) Analyze(ctx context.Context, tenders []model.Tender, products []model.Product) ([]model.Match, error) {
	if len(tenders) == 0 || len(products) == 0 {
		a.logger.Warn("nothing to analyze",
			zap.Int("tenders", len(tenders)),
			zap.Int("products", len(products)),
		)
		return nil, nil
	}

	batches := partition(tenders, a.batchSize)

	a.logger.Info("starting LLM analysis",
		zap.Int("tenders", len(tenders)),
		zap.Int("products", len(products)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", a.batchSize),
		zap.Int("concurrency", a.concurrency),
	)

	// Batches share no mutable state: each writes to its own slot and the
	// merge below preserves batch order regardless of completion order.
	results := make([][]model.Match, len(batches))

	var group errgroup.Group
	group.SetLimit(a.concurrency)

	for i, batch := range batches {
		// Cancellation stops dispatching new batches; in-flight batches
		// finish or time out on their own.
		if ctx.Err() != nil {
			a.logger.Warn("stopping batch dispatch", zap.Error(ctx.Err()))
			break
		}

		group.Go(func() error {
			results[i] = a.analyzeBatch(ctx, i, batch, products)
			return nil
		})
	}

	// Goroutines never return errors; failures are batch-local.
	_ = group.Wait()

	all := make([]model.Match, 0)
	for _, batchMatches := range results {
		all = append(all, batchMatches...)
	}

	// Batches are disjoint by tender, but the shared contract applies
	// regardless of originating strategy.
	result := Postprocess(all, a.minScore)

	a.logger.Info("LLM analysis complete", zap.Int("matches", len(result)))
	metrics.MatchesFound.WithLabelValues(StrategyAI).Add(float64(len(result)))

	return result, nil
}

// analyzeBatch runs one batch to completion. It never fails the run: any
// transport or parse problem is logged and yields zero matches.
func (a *llmAgent) analyzeBatch(ctx context.Context, index int, batch []model.Tender, products []model.Product) []model.Match {
	log := a.logger.With(zap.Int("batch", index), zap.Int("batch_tenders", len(batch)))
	started := time.Now()
	defer func() {
		metrics.LLMBatchDuration.Observe(time.Since(started).Seconds())
	}()

	prompt, err := a.buildPrompt(batch, products)
	if err != nil {
		log.Error("building prompt failed", zap.Error(err))
		metrics.LLMBatchesFailed.WithLabelValues("prompt_error").Inc()
		return nil
	}

	log.Debug("model request",
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, previewLogLength)),
	)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.generator.GenerateContent(callCtx, prompt)
	if err != nil {
		log.Warn("model call failed, batch contributes zero matches", zap.Error(err))
		metrics.LLMBatchesFailed.WithLabelValues("model_error").Inc()
		return nil
	}

	log.Debug("model response",
		zap.Int("response_length", len(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, previewLogLength)),
	)

	elements, err := decodeResults(ExtractPayload(raw))
	if err != nil {
		log.Warn("model response not parseable, batch contributes zero matches", zap.Error(err))
		metrics.LLMBatchesFailed.WithLabelValues("parse_error").Inc()
		return nil
	}

	llmResults := a.validateResults(elements, log)

	return convertResults(llmResults, batch)
}

func (a *llmAgent) buildPrompt(batch []model.Tender, products []model.Product) (string, error) {
	tendersData := make([]promptTender, 0, len(batch))
	for _, t := range batch {
		tendersData = append(tendersData, promptTender{
			ID:          t.ID,
			Title:       t.DisplayName,
			Description: t.Description,
			SLA:         t.SLA,
			Tags:        t.SearchTags,
		})
	}

	productsData := make([]promptProduct, 0, len(products))
	for _, p := range products {
		productsData = append(productsData, promptProduct{
			Name:        p.Name,
			Keywords:    p.Keywords,
			Category:    p.Category,
			Description: p.Description,
		})
	}

	tendersJSON, err := json.MarshalIndent(tendersData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tenders payload: %w", err)
	}

	productsJSON, err := json.MarshalIndent(productsData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal products payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{TENDERS_JSON}}", string(tendersJSON))
	prompt = strings.ReplaceAll(prompt, "{{PRODUCTS_JSON}}", string(productsJSON))
	prompt = strings.ReplaceAll(prompt, "{{MIN_SCORE}}", fmt.Sprintf("%.0f", a.minScore))

	return prompt, nil
}

// validateResults checks each decoded element against the embedded result
// schema. Invalid elements are dropped individually; they never abort the
// batch.
func (a *llmAgent) validateResults(elements []json.RawMessage, log *zap.Logger) []model.LLMMatchResult {
	results := make([]model.LLMMatchResult, 0, len(elements))

	for i, element := range elements {
		outcome, err := a.schema.Validate(gojsonschema.NewBytesLoader(element))
		if err != nil {
			log.Warn("dropping unreadable result element", zap.Int("element", i), zap.Error(err))
			metrics.LLMResultsDropped.Inc()
			continue
		}

		if !outcome.Valid() {
			descs := make([]string, 0, len(outcome.Errors()))
			for _, desc := range outcome.Errors() {
				descs = append(descs, desc.String())
			}
			log.Warn("dropping schema-violating result element",
				zap.Int("element", i),
				zap.Strings("violations", descs),
			)
			metrics.LLMResultsDropped.Inc()
			continue
		}

		var result model.LLMMatchResult
		if err := json.Unmarshal(element, &result); err != nil {
			log.Warn("dropping undecodable result element", zap.Int("element", i), zap.Error(err))
			metrics.LLMResultsDropped.Inc()
			continue
		}

		results = append(results, result)
	}

	return results
}

// convertResults maps validated model output back to canonical matches.
// Market URLs are resolved from the original batch tenders; an id the model
// invented resolves to an empty URL.
func convertResults(results []model.LLMMatchResult, batch []model.Tender) []model.Match {
	urls := make(map[string]string, len(batch))
	for _, t := range batch {
		urls[t.ID] = t.MarketURL
	}

	matches := make([]model.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, r.ToMatch(urls[r.TenderID]))
	}

	return matches
}

func partition(tenders []model.Tender, size int) [][]model.Tender {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([][]model.Tender, 0, (len(tenders)+size-1)/size)
	for start := 0; start < len(tenders); start += size {
		end := start + size
		if end > len(tenders) {
			end = len(tenders)
		}
		batches = append(batches, tenders[start:end])
	}

	return batches
}
