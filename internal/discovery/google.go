package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// The API hard-caps paginated results at 100 per query.
const maxResultsPerQuery = 100

// Searcher yields ordered candidate URLs with search metadata
type Searcher interface {
	SearchJobs(ctx context.Context, keywords, sites []string, dateRestrict string, numResults int) ([]models.SearchResult, error)
}

// GoogleSearch discovers job posting URLs through the Google Custom
// Search JSON API.
type GoogleSearch struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *http.Client
	retry    utils.RetryConfig
	logger   *logrus.Logger
}

// Option customizes a GoogleSearch client
type Option func(*GoogleSearch)

// WithBaseURL overrides the API endpoint, used by tests
func WithBaseURL(baseURL string) Option {
	return func(g *GoogleSearch) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(g *GoogleSearch) {
		g.client = client
	}
}

// NewGoogleSearch creates a discovery client
func NewGoogleSearch(apiKey, engineID string, opts ...Option) (*GoogleSearch, error) {
	if apiKey == "" || engineID == "" {
		return nil, utils.NewConfigError("Google API key and engine ID are required")
	}

	g := &GoogleSearch{
		apiKey:   apiKey,
		engineID: engineID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		retry: utils.RetryConfig{
			MaxAttempts: 2,
			MinWait:     2 * time.Second,
			MaxWait:     10 * time.Second,
		},
		logger: utils.GetLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// BuildQuery assembles the boolean query string: keywords OR-ed
// together (quoted when multi-word) plus an OR group of site filters.
func BuildQuery(keywords, sites []string) (string, error) {
	if len(keywords) == 0 {
		return "", utils.NewConfigError("at least one search keyword is required")
	}

	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			quoted = append(quoted, `"`+kw+`"`)
		} else {
			quoted = append(quoted, kw)
		}
	}
	query := "(" + strings.Join(quoted, " OR ") + ")"

	if len(sites) > 0 {
		parts := make([]string, 0, len(sites))
		for _, site := range sites {
			parts = append(parts, "site:"+site)
		}
		query += " (" + strings.Join(parts, " OR ") + ")"
	}

	return query, nil
}

// SearchJobs builds the boolean query and pages through results
func (g *GoogleSearch) SearchJobs(ctx context.Context, keywords, sites []string, dateRestrict string, numResults int) ([]models.SearchResult, error) {
	query, err := BuildQuery(keywords, sites)
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"query":         query,
		"date_restrict": dateRestrict,
		"num_results":   numResults,
	}).Info("Starting job discovery search")

	return g.Search(ctx, query, dateRestrict, numResults)
}

// Search pages through the API ten results at a time until numResults
// are collected or the result set is exhausted.
func (g *GoogleSearch) Search(ctx context.Context, query, dateRestrict string, numResults int) ([]models.SearchResult, error) {
	if numResults <= 0 || numResults > maxResultsPerQuery {
		numResults = maxResultsPerQuery
	}

	var all []models.SearchResult
	for start := 1; start <= numResults; start += 10 {
		pageSize := numResults - len(all)
		if pageSize > 10 {
			pageSize = 10
		}

		page, err := g.fetchPage(ctx, query, dateRestrict, start, pageSize)
		if err != nil {
			return nil, utils.NewDiscoveryError(err.Error())
		}

		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		if len(all) >= numResults {
			break
		}
	}

	g.logger.WithField("results", len(all)).Info("Discovery search completed")
	return all, nil
}

// searchResponse is the subset of the API response the pipeline uses
type searchResponse struct {
	Items []models.SearchResult `json:"items"`
}

func (g *GoogleSearch) fetchPage(ctx context.Context, query, dateRestrict string, start, num int) ([]models.SearchResult, error) {
	return utils.Retry(ctx, g.retry, func() ([]models.SearchResult, error) {
		params := url.Values{}
		params.Set("key", g.apiKey)
		params.Set("cx", g.engineID)
		params.Set("q", query)
		params.Set("start", strconv.Itoa(start))
		params.Set("num", strconv.Itoa(num))
		if dateRestrict != "" {
			params.Set("dateRestrict", dateRestrict)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build search request: %w", err)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if utils.IsRetryableStatus(resp.StatusCode) {
				return nil, &utils.HTTPStatusError{StatusCode: resp.StatusCode}
			}
			return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
		}

		var parsed searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}

		return parsed.Items, nil
	})
}
