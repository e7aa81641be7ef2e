package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout/internal/router"
	"jobscout/pkg/models"
)

// stubStrategy is a scripted Strategy for exercising the routing and
// batch logic without any network or browser.
type stubStrategy struct {
	method  models.ExtractionMethod
	content string
	err     error
	delay   time.Duration

	mu    sync.Mutex
	calls []string
}

func (s *stubStrategy) Method() models.ExtractionMethod { return s.method }

func (s *stubStrategy) Attempt(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

func (s *stubStrategy) Cleanup() {}

func (s *stubStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func longContent(seed string) string {
	return strings.Repeat(seed+" ", 200)
}

func newTestExtractor(minLen int, strategies ...Strategy) *Extractor {
	return NewWithStrategies(router.New([]string{"greenhouse.io"}), minLen, strategies...)
}

func TestExtractReaderFirstForStaticDomains(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, content: longContent("reader")}
	browser := &stubStrategy{method: models.MethodBrowser, content: longContent("browser")}
	static := &stubStrategy{method: models.MethodStatic, content: longContent("static")}

	e := newTestExtractor(500, reader, browser, static)
	result := e.Extract(context.Background(), "https://jobs.example.com/1")

	require.True(t, result.Success)
	assert.Equal(t, models.MethodReader, result.Method)
	assert.Equal(t, 1, reader.callCount())
	assert.Equal(t, 0, browser.callCount())
	assert.Equal(t, 0, static.callCount())
}

func TestExtractBrowserFirstForDynamicDomains(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, content: longContent("reader")}
	browser := &stubStrategy{method: models.MethodBrowser, content: longContent("browser")}
	static := &stubStrategy{method: models.MethodStatic, content: longContent("static")}

	e := newTestExtractor(500, reader, browser, static)
	result := e.Extract(context.Background(), "https://boards.greenhouse.io/acme/jobs/1")

	require.True(t, result.Success)
	assert.Equal(t, models.MethodBrowser, result.Method)
	assert.Equal(t, 0, reader.callCount())
}

func TestExtractFallsThroughOnFailure(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, err: fmt.Errorf("reader down")}
	browser := &stubStrategy{method: models.MethodBrowser, err: fmt.Errorf("no chrome")}
	static := &stubStrategy{method: models.MethodStatic, content: longContent("static")}

	e := newTestExtractor(500, reader, browser, static)
	result := e.Extract(context.Background(), "https://jobs.example.com/1")

	require.True(t, result.Success)
	assert.Equal(t, models.MethodStatic, result.Method)
	assert.Equal(t, 1, reader.callCount())
	assert.Equal(t, 1, browser.callCount())
}

func TestExtractShortContentIsFailure(t *testing.T) {
	// A strategy returning short text must never surface as success.
	reader := &stubStrategy{method: models.MethodReader, content: "too short"}
	browser := &stubStrategy{method: models.MethodBrowser, content: "also short"}
	static := &stubStrategy{method: models.MethodStatic, content: "short"}

	e := newTestExtractor(500, reader, browser, static)
	result := e.Extract(context.Background(), "https://jobs.example.com/1")

	require.False(t, result.Success)
	assert.Equal(t, models.MethodFailed, result.Method)
	assert.Empty(t, result.Content)
	assert.NotEmpty(t, result.Error)
}

func TestExtractAllFailedCollectsErrors(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, err: fmt.Errorf("reader down")}
	static := &stubStrategy{method: models.MethodStatic, err: fmt.Errorf("status 404")}

	e := newTestExtractor(500, reader, static)
	result := e.Extract(context.Background(), "https://jobs.example.com/1")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "reader down")
	assert.Contains(t, result.Error, "status 404")

	methods := MethodsAttempted(result)
	assert.Equal(t, []string{"reader", "static"}, methods)
}

func TestExtractBatchPreservesOrderSequential(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, content: longContent("x")}
	e := newTestExtractor(500, reader)

	urls := []string{
		"https://jobs.example.com/1",
		"https://jobs.example.com/2",
		"https://jobs.example.com/3",
	}

	results := e.ExtractBatch(context.Background(), urls, BatchOptions{Delay: time.Millisecond})
	require.Len(t, results, 3)
	for i, url := range urls {
		assert.Equal(t, url, results[i].URL)
	}
}

func TestExtractBatchPreservesOrderParallel(t *testing.T) {
	// Earlier URLs finish later, so completion order is reversed; the
	// result slice still has to match input order.
	slow := &variableDelayStrategy{
		method: models.MethodReader,
		delays: map[string]time.Duration{
			"https://jobs.example.com/1": 60 * time.Millisecond,
			"https://jobs.example.com/2": 30 * time.Millisecond,
			"https://jobs.example.com/3": 0,
		},
		content: longContent("x"),
	}
	e := newTestExtractor(500, slow)

	urls := []string{
		"https://jobs.example.com/1",
		"https://jobs.example.com/2",
		"https://jobs.example.com/3",
	}

	results := e.ExtractBatch(context.Background(), urls, BatchOptions{Parallel: true, MaxWorkers: 3})
	require.Len(t, results, 3)
	for i, url := range urls {
		assert.Equal(t, url, results[i].URL)
		assert.True(t, results[i].Success)
	}
}

func TestExtractBatchSizeCap(t *testing.T) {
	reader := &stubStrategy{method: models.MethodReader, content: longContent("x")}
	e := newTestExtractor(500, reader)

	urls := []string{
		"https://jobs.example.com/1",
		"https://jobs.example.com/2",
		"https://jobs.example.com/3",
	}

	results := e.ExtractBatch(context.Background(), urls, BatchOptions{Delay: time.Millisecond, MaxBatchSize: 2})
	require.Len(t, results, 2)
	assert.Equal(t, 2, reader.callCount())
}

func TestExtractBatchEmptyInput(t *testing.T) {
	e := newTestExtractor(500, &stubStrategy{method: models.MethodReader})
	assert.Nil(t, e.ExtractBatch(context.Background(), nil, BatchOptions{}))
}

// variableDelayStrategy delays per URL to force out-of-order completion
type variableDelayStrategy struct {
	method  models.ExtractionMethod
	delays  map[string]time.Duration
	content string
}

func (v *variableDelayStrategy) Method() models.ExtractionMethod { return v.method }

func (v *variableDelayStrategy) Attempt(ctx context.Context, url string) (string, error) {
	if d := v.delays[url]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return v.content, nil
}

func (v *variableDelayStrategy) Cleanup() {}
