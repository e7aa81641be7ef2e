package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"jobscout/internal/cache"
	"jobscout/internal/config"
	"jobscout/internal/discovery"
	"jobscout/internal/extractor"
	"jobscout/internal/llm"
	"jobscout/internal/prefilter"
	"jobscout/internal/relevance"
	"jobscout/internal/router"
	"jobscout/internal/storage"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// Extractor is the batch extraction collaborator
type Extractor interface {
	ExtractBatch(ctx context.Context, urls []string, opts extractor.BatchOptions) []models.ExtractionResult
	Cleanup()
}

// Parser is the LLM field-extraction collaborator
type Parser interface {
	ParseJob(ctx context.Context, content, url string) (*models.JobPosting, error)
}

// PreFilter is the pre-parse filtering collaborator
type PreFilter interface {
	FilterBatch(results []models.ExtractionResult) ([]models.ExtractionResult, []prefilter.RejectedItem)
}

// SeenCache deduplicates URLs across runs; nil disables the stage
type SeenCache interface {
	Seen(ctx context.Context, url string) bool
	Mark(ctx context.Context, url string)
}

// Pipeline sequences one full ingestion run: discover, early-filter,
// extract, pre-filter, parse, score, persist. Stages run strictly in
// order; per-item failures are recorded and skipped while a discovery
// failure aborts the whole run.
type Pipeline struct {
	cfg       *config.Config
	searcher  discovery.Searcher
	extractor Extractor
	prefilter PreFilter
	scorer    *relevance.Scorer
	parser    Parser
	store     storage.Store
	seen      SeenCache
	logger    *logrus.Logger
}

// New assembles a pipeline from its collaborators. seen may be nil.
func New(cfg *config.Config, searcher discovery.Searcher, ext Extractor, parser Parser, store storage.Store, seen SeenCache) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		searcher:  searcher,
		extractor: ext,
		prefilter: prefilter.New(cfg.PreFilter.MaxYears),
		scorer:    relevance.New(cfg.Profile, cfg.Scoring.Weights),
		parser:    parser,
		store:     store,
		seen:      seen,
		logger:    utils.GetLogger(),
	}
}

// RunOptions tunes one pipeline run; zero values fall back to config
type RunOptions struct {
	Keywords         []string
	Sites            []string
	DateRestrict     string
	NumResults       int
	MinScore         int
	DisablePreFilter bool
	Parallel         bool
}

// Run executes one full pipeline pass and always returns a populated
// summary, even when it also returns an error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     utils.GenerateRequestID(),
		StartedAt: time.Now(),
	}
	defer func() {
		summary.CompletedAt = time.Now()
	}()

	log := p.logger.WithField("run_id", summary.RunID)

	keywords := opts.Keywords
	if len(keywords) == 0 {
		keywords = p.cfg.Search.Keywords
	}
	sites := opts.Sites
	if len(sites) == 0 {
		sites = p.cfg.Search.Sites
	}
	dateRestrict := utils.GetStringOrDefault(opts.DateRestrict, p.cfg.Search.DateRestrict)
	numResults := opts.NumResults
	if numResults <= 0 {
		numResults = p.cfg.Search.NumResults
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = p.cfg.Scoring.MinScore
	}

	// Stage 1: discovery. The one stage whose failure kills the run.
	results, err := p.searcher.SearchJobs(ctx, keywords, sites, dateRestrict, numResults)
	if err != nil {
		log.WithError(err).Error("Discovery stage failed, aborting run")
		return summary, fmt.Errorf("discovery stage failed: %w", err)
	}
	summary.Searched = len(results)
	log.WithField("results", len(results)).Info("Discovery complete")

	// Stage 2: early filter on search metadata.
	byURL := make(map[string]models.SearchResult, len(results))
	var candidates []string
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		if p.scorer.ShouldSkipEarly(r.Title, r.Snippet, r.DisplayLink) {
			summary.EarlySkipped++
			continue
		}
		if _, dup := byURL[r.Link]; dup {
			continue
		}
		byURL[r.Link] = r
		candidates = append(candidates, r.Link)
	}
	log.WithFields(logrus.Fields{
		"candidates":    len(candidates),
		"early_skipped": summary.EarlySkipped,
	}).Info("Early filter complete")

	// Stage 3: drop URLs seen in previous runs.
	if p.seen != nil {
		fresh := candidates[:0]
		for _, url := range candidates {
			if p.seen.Seen(ctx, url) {
				summary.SeenSkipped++
				continue
			}
			fresh = append(fresh, url)
		}
		candidates = fresh
	}

	// Stage 4: extraction.
	extracted := p.extractor.ExtractBatch(ctx, candidates, extractor.BatchOptions{
		Delay:        p.cfg.Extractor.RateLimitDelay,
		MaxBatchSize: p.cfg.Extractor.MaxBatchSize,
		Parallel:     opts.Parallel || p.cfg.Extractor.Parallel,
		MaxWorkers:   p.cfg.Extractor.MaxWorkers,
	})

	var successful []models.ExtractionResult
	for _, result := range extracted {
		if result.Success {
			summary.Extracted++
			successful = append(successful, result)
			continue
		}

		summary.ExtractionFailed++
		meta := byURL[result.URL]
		rec := storage.UnextractedJob{
			URL:              result.URL,
			Title:            meta.Title,
			Snippet:          meta.Snippet,
			SourceDomain:     router.Domain(result.URL),
			MethodsAttempted: extractor.MethodsAttempted(result),
			ErrorMessage:     result.Error,
		}
		if err := p.store.SaveUnextracted(ctx, rec); err != nil {
			log.WithError(err).WithField("url", result.URL).Warn("Failed to record unextracted job")
		}
	}
	log.WithFields(logrus.Fields{
		"extracted": summary.Extracted,
		"failed":    summary.ExtractionFailed,
	}).Info("Extraction complete")

	// Stage 5: pre-parse filter, optional per run.
	passed := successful
	if !opts.DisablePreFilter && p.cfg.PreFilter.Enabled {
		var rejected []prefilter.RejectedItem
		passed, rejected = p.prefilter.FilterBatch(successful)
		summary.PreFiltered = len(rejected)

		for _, item := range rejected {
			rec := storage.PreFilteredJob{
				URL:            item.Result.URL,
				Reason:         item.Reason,
				Details:        item.Details,
				ContentPreview: utils.Truncate(item.Result.Content, 500),
			}
			if err := p.store.SavePreFiltered(ctx, rec); err != nil {
				log.WithError(err).WithField("url", item.Result.URL).Warn("Failed to record prefiltered job")
			}
		}
	}

	// Stage 6: LLM parse, one failure never aborts the batch.
	var jobs []*models.JobPosting
	for _, result := range passed {
		job, err := p.parser.ParseJob(ctx, result.Content, result.URL)
		if err != nil {
			summary.ParseFailed++
			log.WithError(err).WithField("url", result.URL).Warn("LLM parse failed")
			continue
		}
		summary.Parsed++
		jobs = append(jobs, job)
	}

	// Stage 7: relevance scoring and threshold filter.
	scored := p.scorer.FilterJobs(jobs, minScore)
	summary.Scored = len(scored)

	// Stage 8: persistence. Duplicates are counted, not errors.
	for _, sj := range scored {
		saved, err := p.store.SaveScoredJob(ctx, sj)
		if err != nil {
			log.WithError(err).WithField("url", sj.Job.URL).Warn("Failed to save job")
			continue
		}
		if saved {
			summary.Saved++
		} else {
			summary.Duplicates++
		}
		if p.seen != nil {
			p.seen.Mark(ctx, sj.Job.URL)
		}
	}

	log.WithFields(logrus.Fields{
		"searched":          summary.Searched,
		"early_skipped":     summary.EarlySkipped,
		"seen_skipped":      summary.SeenSkipped,
		"extracted":         summary.Extracted,
		"extraction_failed": summary.ExtractionFailed,
		"pre_filtered":      summary.PreFiltered,
		"parsed":            summary.Parsed,
		"parse_failed":      summary.ParseFailed,
		"scored":            summary.Scored,
		"saved":             summary.Saved,
		"duplicates":        summary.Duplicates,
		"duration":          utils.FormatDuration(time.Since(summary.StartedAt)),
	}).Info("Pipeline run complete")

	return summary, nil
}

// compile-time collaborator checks
var (
	_ Extractor = (*extractor.Extractor)(nil)
	_ Parser    = (*llm.Manager)(nil)
	_ SeenCache = (*cache.SeenCache)(nil)
)
