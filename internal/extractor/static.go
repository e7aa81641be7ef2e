package extractor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// StaticStrategy fetches the page with a plain HTTP GET and pulls the
// posting text out of the raw HTML. Cheapest strategy, last in every
// chain; only works for boards that server-render their postings.
type StaticStrategy struct {
	client    *http.Client
	userAgent string
	minLength int
	retry     utils.RetryConfig
	logger    *logrus.Logger
}

// NewStaticStrategy creates the static strategy from configuration
func NewStaticStrategy(cfg *config.Config) *StaticStrategy {
	return &StaticStrategy{
		client:    &http.Client{Timeout: cfg.Scraper.RequestTimeout},
		userAgent: cfg.Scraper.UserAgent,
		minLength: cfg.Extractor.MinContentLength,
		retry: utils.RetryConfig{
			MaxAttempts: cfg.Scraper.MaxAttempts,
			MinWait:     1 * time.Second,
			MaxWait:     5 * time.Second,
		},
		logger: utils.GetLogger(),
	}
}

// Method identifies this strategy
func (ss *StaticStrategy) Method() models.ExtractionMethod {
	return models.MethodStatic
}

// Attempt fetches and parses one page, retrying transient failures
func (ss *StaticStrategy) Attempt(ctx context.Context, url string) (string, error) {
	return utils.Retry(ctx, ss.retry, func() (string, error) {
		return ss.fetch(ctx, url)
	})
}

func (ss *StaticStrategy) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", ss.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := ss.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if utils.IsRetryableStatus(resp.StatusCode) {
			return "", &utils.HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Chrome and navigation furniture only dilute the posting text.
	doc.Find("script, style, nav, header, footer").Remove()

	content, err := ss.probeSelectors(doc)
	if err != nil {
		return "", err
	}

	ss.logger.WithFields(logrus.Fields{
		"url":    url,
		"length": len(content),
	}).Debug("Static extraction succeeded")
	return content, nil
}

// probeSelectors applies the same selector priority as the browser
// strategy against the parsed document.
func (ss *StaticStrategy) probeSelectors(doc *goquery.Document) (string, error) {
	for _, selector := range jobSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		text := utils.CollapseWhitespace(sel.Text())
		if len(text) >= ss.minLength {
			return text, nil
		}
	}

	text := utils.CollapseWhitespace(doc.Find("body").Text())
	if len(text) < ss.minLength {
		return "", fmt.Errorf("page has %d chars: %w", len(text), errContentTooShort)
	}
	return text, nil
}

// Cleanup releases resources; the static strategy holds none
func (ss *StaticStrategy) Cleanup() {}
