package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jobscout/internal/cache"
	"jobscout/internal/config"
	"jobscout/internal/discovery"
	"jobscout/internal/extractor"
	"jobscout/internal/llm"
	"jobscout/internal/pipeline"
	"jobscout/internal/storage"
	"jobscout/pkg/utils"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to YAML configuration file")
		keywords    = flag.String("keywords", "", "comma-separated search keywords, overrides config")
		minScore    = flag.Int("min-score", 0, "minimum relevance score to save, overrides config")
		noPreFilter = flag.Bool("no-prefilter", false, "send all extracted content to the LLM parser")
		parallel    = flag.Bool("parallel", false, "extract URLs with a bounded worker pool")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.GetLogger().WithError(err).Fatal("Failed to load configuration")
	}

	utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger := utils.GetLogger()

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer store.Close()

	searcher, err := discovery.NewGoogleSearch(cfg.Search.APIKey, cfg.Search.EngineID)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create discovery client")
	}

	llmManager := llm.NewManager(cfg)
	if err := llmManager.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start LLM manager")
	}
	defer llmManager.Stop()

	ext := extractor.New(cfg)
	defer ext.Cleanup()

	seen := cache.New(cfg.Redis.URL, cfg.Redis.SeenTTL)
	defer seen.Close()

	p := pipeline.New(cfg, searcher, ext, llmManager, store, seen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipeline.RunOptions{
		MinScore:         *minScore,
		DisablePreFilter: *noPreFilter,
		Parallel:         *parallel,
	}
	if *keywords != "" {
		for _, kw := range strings.Split(*keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				opts.Keywords = append(opts.Keywords, kw)
			}
		}
	}

	summary, err := p.Run(ctx, opts)
	if err != nil {
		logger.WithError(err).WithField("run_id", summary.RunID).Error("Pipeline run failed")
		os.Exit(1)
	}

	stats, err := store.Stats(ctx)
	if err == nil {
		logger.WithFields(map[string]interface{}{
			"total_jobs":        stats.Jobs,
			"total_unextracted": stats.Unextracted,
			"total_prefiltered": stats.PreFiltered,
		}).Info("Database totals")
	}
}
