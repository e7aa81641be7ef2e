package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout/internal/config"
	"jobscout/internal/extractor"
	"jobscout/internal/storage"
	"jobscout/pkg/models"
)

type fakeSearcher struct {
	results []models.SearchResult
	err     error
}

func (f *fakeSearcher) SearchJobs(ctx context.Context, keywords, sites []string, dateRestrict string, numResults int) ([]models.SearchResult, error) {
	return f.results, f.err
}

type fakeExtractor struct {
	content map[string]string
	calls   []string
}

func (f *fakeExtractor) ExtractBatch(ctx context.Context, urls []string, opts extractor.BatchOptions) []models.ExtractionResult {
	results := make([]models.ExtractionResult, len(urls))
	for i, url := range urls {
		f.calls = append(f.calls, url)
		if content, ok := f.content[url]; ok {
			results[i] = models.ExtractionResult{URL: url, Content: content, Method: models.MethodReader, Success: true}
		} else {
			results[i] = models.ExtractionResult{URL: url, Method: models.MethodFailed, Success: false, Error: "reader: unreachable"}
		}
	}
	return results
}

func (f *fakeExtractor) Cleanup() {}

type fakeParser struct {
	jobs map[string]*models.JobPosting
}

func (f *fakeParser) ParseJob(ctx context.Context, content, url string) (*models.JobPosting, error) {
	if job, ok := f.jobs[url]; ok {
		return job, nil
	}
	return nil, fmt.Errorf("malformed model output")
}

type fakeStore struct {
	saved       []models.ScoredJob
	unextracted []storage.UnextractedJob
	prefiltered []storage.PreFilteredJob
	seenURLs    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{seenURLs: map[string]bool{}}
}

func (f *fakeStore) SaveScoredJob(ctx context.Context, job models.ScoredJob) (bool, error) {
	if f.seenURLs[job.Job.URL] {
		return false, nil
	}
	f.seenURLs[job.Job.URL] = true
	f.saved = append(f.saved, job)
	return true, nil
}

func (f *fakeStore) SaveUnextracted(ctx context.Context, rec storage.UnextractedJob) error {
	f.unextracted = append(f.unextracted, rec)
	return nil
}

func (f *fakeStore) SavePreFiltered(ctx context.Context, rec storage.PreFilteredJob) error {
	f.prefiltered = append(f.prefiltered, rec)
	return nil
}

func (f *fakeStore) ListUnextracted(ctx context.Context, limit int) ([]storage.UnextractedJob, error) {
	return f.unextracted, nil
}

func (f *fakeStore) Stats(ctx context.Context) (storage.Stats, error) {
	return storage.Stats{Jobs: len(f.saved)}, nil
}

func (f *fakeStore) Close() error { return nil }

type memorySeen struct {
	seen map[string]bool
}

func (m *memorySeen) Seen(ctx context.Context, url string) bool { return m.seen[url] }
func (m *memorySeen) Mark(ctx context.Context, url string)      { m.seen[url] = true }

func testConfig() *config.Config {
	cfg, _ := config.LoadConfig("")
	cfg.Profile = models.UserProfile{
		MaxYearsOfExperience: 5,
		RequiredSkills:       []string{"Go"},
		ExcludeTitleKeywords: []string{"senior"},
	}
	return cfg
}

func goodContent(url string) string {
	return strings.Repeat("Backend engineer role, 3 years of experience with Go. Remote in the United States. ", 10) + url
}

func TestRunHappyPath(t *testing.T) {
	cfg := testConfig()

	url1 := "https://jobs.example.com/1"
	url2 := "https://jobs.example.com/2"

	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: url1, Snippet: "remote role"},
		{Title: "Backend Engineer", Link: url2, Snippet: "remote role"},
	}}
	ext := &fakeExtractor{content: map[string]string{
		url1: goodContent(url1),
		url2: goodContent(url2),
	}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		url1: {URL: url1, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
		url2: {URL: url2, Title: "Backend Engineer", Company: "Beta", YearsOfExperience: 2, RequiredSkills: []string{"Go"}, Remote: true},
	}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, parser, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Searched)
	assert.Equal(t, 0, summary.EarlySkipped)
	assert.Equal(t, 2, summary.Extracted)
	assert.Equal(t, 2, summary.Parsed)
	assert.Equal(t, 2, summary.Scored)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Len(t, store.saved, 2)
	assert.NotEmpty(t, summary.RunID)
	assert.False(t, summary.CompletedAt.IsZero())
}

func TestRunDiscoveryFailureAborts(t *testing.T) {
	cfg := testConfig()

	searcher := &fakeSearcher{err: fmt.Errorf("api quota exhausted")}
	p := New(cfg, searcher, &fakeExtractor{}, &fakeParser{}, newFakeStore(), nil)

	summary, err := p.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery stage failed")
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Searched)
}

func TestRunEarlyFilterSkips(t *testing.T) {
	cfg := testConfig()

	url := "https://jobs.example.com/1"
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Senior Go Engineer", Link: "https://jobs.example.com/skip", Snippet: "remote"},
		{Title: "Go Engineer", Link: url, Snippet: "remote role"},
	}}
	ext := &fakeExtractor{content: map[string]string{url: goodContent(url)}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		url: {URL: url, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
	}}

	p := New(cfg, searcher, ext, parser, newFakeStore(), nil)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EarlySkipped)
	assert.Equal(t, []string{url}, ext.calls)
}

func TestRunExtractionFailureIsRecorded(t *testing.T) {
	cfg := testConfig()

	good := "https://jobs.example.com/good"
	bad := "https://jobs.example.com/bad"
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: good, Snippet: "remote"},
		{Title: "Go Engineer II", Link: bad, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{good: goodContent(good)}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		good: {URL: good, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
	}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, parser, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.ExtractionFailed)
	require.Len(t, store.unextracted, 1)
	assert.Equal(t, bad, store.unextracted[0].URL)
	assert.Equal(t, []string{"reader"}, store.unextracted[0].MethodsAttempted)
	assert.Equal(t, 1, summary.Saved)
}

func TestRunPreFilterRejectionIsRecorded(t *testing.T) {
	cfg := testConfig()

	url := "https://jobs.example.com/clearance"
	content := strings.Repeat("Interesting role at a fine company. ", 20) + "US citizenship required."

	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: url, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{url: content}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, &fakeParser{}, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PreFiltered)
	assert.Equal(t, 0, summary.Parsed)
	require.Len(t, store.prefiltered, 1)
	assert.Equal(t, models.ReasonCitizenshipRequired, store.prefiltered[0].Reason)
	assert.NotEmpty(t, store.prefiltered[0].ContentPreview)
}

func TestRunPreFilterCanBeDisabled(t *testing.T) {
	cfg := testConfig()

	url := "https://jobs.example.com/clearance"
	content := strings.Repeat("Interesting role at a fine company. ", 20) + "US citizenship required."

	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: url, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{url: content}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		url: {URL: url, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
	}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, parser, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{DisablePreFilter: true})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.PreFiltered)
	assert.Equal(t, 1, summary.Parsed)
	assert.Empty(t, store.prefiltered)
}

func TestRunParseFailureIsIsolated(t *testing.T) {
	cfg := testConfig()

	good := "https://jobs.example.com/good"
	broken := "https://jobs.example.com/broken"
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: good, Snippet: "remote"},
		{Title: "Go Engineer II", Link: broken, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{
		good:   goodContent(good),
		broken: goodContent(broken),
	}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		good: {URL: good, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
	}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, parser, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 1, summary.ParseFailed)
	assert.Equal(t, 1, summary.Saved)
}

func TestRunSeenCacheSkipsAndMarks(t *testing.T) {
	cfg := testConfig()

	seenURL := "https://jobs.example.com/old"
	newURL := "https://jobs.example.com/new"
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: seenURL, Snippet: "remote"},
		{Title: "Go Engineer II", Link: newURL, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{newURL: goodContent(newURL)}}
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		newURL: {URL: newURL, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 3, RequiredSkills: []string{"Go"}, Remote: true},
	}}
	seen := &memorySeen{seen: map[string]bool{seenURL: true}}

	p := New(cfg, searcher, ext, parser, newFakeStore(), seen)
	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SeenSkipped)
	assert.Equal(t, []string{newURL}, ext.calls)
	assert.True(t, seen.seen[newURL], "saved jobs are marked seen")
}

func TestRunMinScoreFiltersLowJobs(t *testing.T) {
	cfg := testConfig()

	url := "https://jobs.example.com/1"
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Title: "Go Engineer", Link: url, Snippet: "remote"},
	}}
	ext := &fakeExtractor{content: map[string]string{url: goodContent(url)}}
	// Over the experience ceiling: the score clamps to 0.
	parser := &fakeParser{jobs: map[string]*models.JobPosting{
		url: {URL: url, Title: "Go Engineer", Company: "Acme", YearsOfExperience: 12, Remote: true},
	}}
	store := newFakeStore()

	p := New(cfg, searcher, ext, parser, store, nil)
	summary, err := p.Run(context.Background(), RunOptions{MinScore: 30})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 0, summary.Scored)
	assert.Empty(t, store.saved)
}
