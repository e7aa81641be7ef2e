package extractor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// BrowserStrategy extracts posting text through a headless browser so
// client-rendered boards produce real content. The browser launches
// lazily on first use; each Attempt gets its own stealth page which is
// closed unconditionally when the attempt ends. Failures are never
// retried here, a browser round trip is too expensive to repeat.
type BrowserStrategy struct {
	config *config.Config

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser

	minLength  int
	settleWait time.Duration
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewBrowserStrategy creates the browser strategy from configuration
func NewBrowserStrategy(cfg *config.Config) *BrowserStrategy {
	return &BrowserStrategy{
		config:     cfg,
		minLength:  cfg.Extractor.MinContentLength,
		settleWait: cfg.Scraper.SettleWait,
		timeout:    cfg.Scraper.RequestTimeout,
		logger:     utils.GetLogger(),
	}
}

// Method identifies this strategy
func (bs *BrowserStrategy) Method() models.ExtractionMethod {
	return models.MethodBrowser
}

// Attempt renders the page and probes the selector list for the
// posting body.
func (bs *BrowserStrategy) Attempt(ctx context.Context, url string) (string, error) {
	browser, err := bs.ensureBrowser()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("failed to create stealth page: %w", err)
	}
	defer func() {
		_ = rod.Try(page.MustClose)
	}()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		bs.logger.WithError(err).Warn("Failed to set viewport")
	}

	if bs.config.Scraper.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: bs.config.Scraper.UserAgent,
		}); err != nil {
			bs.logger.WithError(err).Warn("Failed to set user agent")
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, bs.timeout)
	defer cancel()

	if err := rod.Try(func() {
		page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	}); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	// Give client-side rendering a moment to fill the page in.
	select {
	case <-time.After(bs.settleWait):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	content, err := bs.probeSelectors(page)
	if err != nil {
		return "", err
	}

	bs.logger.WithFields(logrus.Fields{
		"url":    url,
		"length": len(content),
	}).Debug("Browser extraction succeeded")
	return content, nil
}

// probeSelectors walks the selector priority list and returns the
// first element text that clears the threshold, falling back to full
// body text under the same threshold.
func (bs *BrowserStrategy) probeSelectors(page *rod.Page) (string, error) {
	for _, selector := range jobSelectors {
		has, el, err := page.Has(selector)
		if err != nil || !has {
			continue
		}

		text, err := el.Text()
		if err != nil {
			continue
		}

		text = utils.CollapseWhitespace(text)
		if len(text) >= bs.minLength {
			return text, nil
		}
	}

	var bodyText string
	err := rod.Try(func() {
		bodyText = page.MustElement("body").MustText()
	})
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	bodyText = utils.CollapseWhitespace(bodyText)
	if len(bodyText) < bs.minLength {
		return "", fmt.Errorf("rendered page has %d chars: %w", len(bodyText), errContentTooShort)
	}
	return bodyText, nil
}

// ensureBrowser launches and connects the shared browser on first use
func (bs *BrowserStrategy) ensureBrowser() (*rod.Browser, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.browser != nil {
		return bs.browser, nil
	}

	l := launcher.New().
		Headless(bs.config.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if bs.config.Scraper.UserAgent != "" {
		l = l.Set("user-agent", bs.config.Scraper.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	bs.launcher = l
	bs.browser = browser
	bs.logger.Info("Headless browser launched")
	return browser, nil
}

// Cleanup closes the shared browser if one was launched
func (bs *BrowserStrategy) Cleanup() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.browser != nil {
		if err := bs.browser.Close(); err != nil {
			bs.logger.WithError(err).Warn("Failed to close browser")
		}
		bs.browser = nil
	}
	if bs.launcher != nil {
		bs.launcher.Cleanup()
		bs.launcher = nil
	}
}
