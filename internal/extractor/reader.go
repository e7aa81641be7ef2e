package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go"
	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// ReaderStrategy delegates page-to-text conversion to a remote reader
// service. With an API key configured it uses the Firecrawl SDK;
// otherwise it falls back to a prefix-style reader endpoint that takes
// the target URL as its path.
type ReaderStrategy struct {
	app       *firecrawl.FirecrawlApp
	endpoint  string
	client    *http.Client
	minLength int
	retry     utils.RetryConfig
	logger    *logrus.Logger
}

// NewReaderStrategy creates the reader strategy from configuration
func NewReaderStrategy(cfg *config.Config) *ReaderStrategy {
	logger := utils.GetLogger()

	rs := &ReaderStrategy{
		endpoint:  strings.TrimSuffix(cfg.Reader.Endpoint, "/"),
		client:    &http.Client{Timeout: cfg.Reader.Timeout},
		minLength: cfg.Extractor.MinContentLength,
		retry: utils.RetryConfig{
			MaxAttempts: cfg.Reader.MaxAttempts,
			MinWait:     1 * time.Second,
			MaxWait:     5 * time.Second,
			// The SDK flattens transport errors into opaque strings, so
			// every reader failure is retried except the short-content
			// verdict, which no retry can change.
			RetryIf: func(err error) bool {
				return !errors.Is(err, errContentTooShort)
			},
		},
		logger: logger,
	}

	if cfg.Reader.APIKey != "" {
		app, err := firecrawl.NewFirecrawlApp(cfg.Reader.APIKey, cfg.Reader.APIURL)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize Firecrawl, reader strategy will use the fallback endpoint")
		} else {
			rs.app = app
		}
	}

	return rs
}

// Method identifies this strategy
func (rs *ReaderStrategy) Method() models.ExtractionMethod {
	return models.MethodReader
}

// Attempt converts one page to text through the reader service
func (rs *ReaderStrategy) Attempt(ctx context.Context, url string) (string, error) {
	return utils.Retry(ctx, rs.retry, func() (string, error) {
		if rs.app != nil {
			return rs.scrapeWithFirecrawl(url)
		}
		return rs.fetchFromEndpoint(ctx, url)
	})
}

func (rs *ReaderStrategy) scrapeWithFirecrawl(url string) (string, error) {
	doc, err := rs.app.ScrapeURL(url, &firecrawl.ScrapeParams{
		Formats: []string{"markdown"},
	})
	if err != nil {
		return "", fmt.Errorf("firecrawl scrape failed: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("no result returned from Firecrawl")
	}

	content := doc.Markdown
	if content == "" {
		content = doc.HTML
	}
	if len(content) < rs.minLength {
		return "", fmt.Errorf("reader returned %d chars: %w", len(content), errContentTooShort)
	}

	rs.logger.WithFields(logrus.Fields{
		"url":    url,
		"length": len(content),
	}).Debug("Firecrawl reader scrape succeeded")
	return content, nil
}

// fetchFromEndpoint hits a Jina-style reader that serves plain text at
// <endpoint>/<target-url>.
func (rs *ReaderStrategy) fetchFromEndpoint(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rs.endpoint+"/"+url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build reader request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := rs.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if utils.IsRetryableStatus(resp.StatusCode) {
			return "", &utils.HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("reader returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read reader response: %w", err)
	}

	content := strings.TrimSpace(string(body))
	if len(content) < rs.minLength {
		return "", fmt.Errorf("reader returned %d chars: %w", len(content), errContentTooShort)
	}
	return content, nil
}

// Cleanup releases resources; the reader holds none beyond the client
func (rs *ReaderStrategy) Cleanup() {}
