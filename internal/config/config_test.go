package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "d1", cfg.Search.DateRestrict)
	assert.Equal(t, 500, cfg.Extractor.MinContentLength)
	assert.Equal(t, 5, cfg.Extractor.MaxWorkers)
	assert.Equal(t, 5, cfg.PreFilter.MaxYears)
	assert.True(t, cfg.PreFilter.Enabled)
	assert.Equal(t, 30, cfg.Scoring.MinScore)
	assert.Equal(t, 30, cfg.Scoring.Weights.ExperienceFit)
	assert.Equal(t, -50, cfg.Scoring.Weights.ExperiencePenalty)
	assert.Contains(t, cfg.Extractor.JSHeavyDomains, "greenhouse.io")
	assert.Contains(t, cfg.Extractor.ReaderDomains, "workable.com")
	assert.NotEmpty(t, cfg.Search.Sites)
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
search:
  keywords:
    - backend engineer
  num_results: 20
pre_filter:
  max_years: 7
scoring:
  min_score: 40
profile:
  max_yoe: 7
  required_skills:
    - go
  exclude_title_keywords:
    - senior
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"backend engineer"}, cfg.Search.Keywords)
	assert.Equal(t, 20, cfg.Search.NumResults)
	assert.Equal(t, 7, cfg.PreFilter.MaxYears)
	assert.Equal(t, 40, cfg.Scoring.MinScore)
	assert.Equal(t, 7, cfg.Profile.MaxYearsOfExperience)
	assert.Equal(t, []string{"go"}, cfg.Profile.RequiredSkills)

	// Untouched sections keep their defaults.
	assert.Equal(t, 500, cfg.Extractor.MinContentLength)
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_SEARCH_KEY", "expanded-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
search:
  api_key: ${TEST_SEARCH_KEY}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-key", cfg.Search.APIKey)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "env-google-key")
	t.Setenv("MIN_SCORE", "55")
	t.Setenv("PREFILTER_MAX_YEARS", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "env-google-key", cfg.Search.APIKey)
	assert.Equal(t, 55, cfg.Scoring.MinScore)
	assert.Equal(t, 3, cfg.PreFilter.MaxYears)
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Search.APIKey = ""
	cfg.Search.EngineID = "cx"
	cfg.LLM.APIKey = "llm"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.api_key")
}

func TestValidateRequiresProfileSkills(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Search.APIKey = "key"
	cfg.Search.EngineID = "cx"
	cfg.LLM.APIKey = "llm"
	cfg.Profile.RequiredSkills = nil

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile")
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Search.APIKey = "key"
	cfg.Search.EngineID = "cx"
	cfg.LLM.APIKey = "llm"
	cfg.Profile.RequiredSkills = []string{"go"}
	cfg.Profile.MaxYearsOfExperience = 5

	assert.NoError(t, cfg.Validate())
}
