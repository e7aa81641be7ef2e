package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/internal/router"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// errContentTooShort marks a fetch that technically succeeded but
// returned less text than a real posting ever has. Not retryable; the
// page simply has nothing more to give.
var errContentTooShort = errors.New("extracted content below minimum length")

// Strategy is one way of turning a URL into posting text
type Strategy interface {
	// Method identifies the strategy in results and audit records
	Method() models.ExtractionMethod

	// Attempt fetches and extracts text for one URL. Implementations
	// handle their own retry policy internally.
	Attempt(ctx context.Context, url string) (string, error)

	// Cleanup releases any resources held by the strategy
	Cleanup()
}

// Extractor routes URLs through the strategy chain picked by the
// domain router and enforces the minimum content threshold.
type Extractor struct {
	router     *router.Router
	strategies map[models.ExtractionMethod]Strategy
	minLength  int
	logger     *logrus.Logger
}

// New builds an Extractor with the full production strategy set
func New(cfg *config.Config) *Extractor {
	return NewWithStrategies(
		router.New(cfg.Extractor.JSHeavyDomains),
		cfg.Extractor.MinContentLength,
		NewReaderStrategy(cfg),
		NewBrowserStrategy(cfg),
		NewStaticStrategy(cfg),
	)
}

// NewWithStrategies builds an Extractor over an explicit strategy set.
// Used by tests to substitute stub strategies.
func NewWithStrategies(rt *router.Router, minLength int, strategies ...Strategy) *Extractor {
	byMethod := make(map[models.ExtractionMethod]Strategy, len(strategies))
	for _, s := range strategies {
		byMethod[s.Method()] = s
	}

	return &Extractor{
		router:     rt,
		strategies: byMethod,
		minLength:  minLength,
		logger:     utils.GetLogger(),
	}
}

// Extract runs the strategy chain for one URL, stopping at the first
// strategy that produces content at or above the threshold. An
// exhausted chain yields a failed result, never an error: per-URL
// failures are data, not control flow.
func (e *Extractor) Extract(ctx context.Context, url string) models.ExtractionResult {
	route := e.router.Classify(url)

	order := []models.ExtractionMethod{models.MethodReader, models.MethodBrowser, models.MethodStatic}
	if route.RequiresDynamicRendering {
		order = []models.ExtractionMethod{models.MethodBrowser, models.MethodReader, models.MethodStatic}
	}

	var failures []string
	for _, method := range order {
		strategy, ok := e.strategies[method]
		if !ok {
			continue
		}

		content, err := strategy.Attempt(ctx, url)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"url":    url,
				"method": method,
				"error":  err.Error(),
			}).Warn("Extraction strategy failed")
			failures = append(failures, fmt.Sprintf("%s: %v", method, err))
			continue
		}

		if len(content) < e.minLength {
			e.logger.WithFields(logrus.Fields{
				"url":    url,
				"method": method,
				"length": len(content),
			}).Warn("Extraction strategy returned short content")
			failures = append(failures, fmt.Sprintf("%s: %v", method, errContentTooShort))
			continue
		}

		e.logger.WithFields(logrus.Fields{
			"url":    url,
			"method": method,
			"length": len(content),
		}).Info("Extraction succeeded")

		return models.ExtractionResult{
			URL:     url,
			Content: content,
			Method:  method,
			Success: true,
		}
	}

	return models.ExtractionResult{
		URL:     url,
		Method:  models.MethodFailed,
		Success: false,
		Error:   strings.Join(failures, "; "),
	}
}

// MethodsAttempted reports which strategies a failed result went
// through, for the unextracted-jobs audit record.
func MethodsAttempted(result models.ExtractionResult) []string {
	if result.Success || result.Error == "" {
		return []string{string(result.Method)}
	}

	var methods []string
	for _, part := range strings.Split(result.Error, "; ") {
		if name, _, found := strings.Cut(part, ":"); found {
			methods = append(methods, strings.TrimSpace(name))
		}
	}
	return methods
}

// Cleanup releases resources held by all strategies
func (e *Extractor) Cleanup() {
	for _, s := range e.strategies {
		s.Cleanup()
	}
}
