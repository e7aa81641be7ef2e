package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobscout/pkg/models"
)

// ScoreWeights holds the relevance scoring constants. They are product
// tuning knobs, not code, so they live in configuration with the
// long-standing defaults.
type ScoreWeights struct {
	ExperienceFit     int `yaml:"experience_fit" default:"30"`
	ExperiencePenalty int `yaml:"experience_penalty" default:"-50"`
	RequiredSkill     int `yaml:"required_skill" default:"5"`
	RequiredSkillCap  int `yaml:"required_skill_cap" default:"25"`
	PreferredSkill    int `yaml:"preferred_skill" default:"3"`
	PreferredSkillCap int `yaml:"preferred_skill_cap" default:"15"`
	LocationMatch     int `yaml:"location_match" default:"15"`
	RemotePreferred   int `yaml:"remote_preferred" default:"10"`
	RemoteBonus       int `yaml:"remote_bonus" default:"5"`
	ExcludedTitle     int `yaml:"excluded_title" default:"-40"`
}

// Config represents the application configuration
type Config struct {
	Search struct {
		APIKey       string   `yaml:"api_key"`
		EngineID     string   `yaml:"engine_id"`
		Keywords     []string `yaml:"keywords"`
		Sites        []string `yaml:"sites"`
		DateRestrict string   `yaml:"date_restrict" default:"d1"`
		NumResults   int      `yaml:"num_results" default:"50"`
	} `yaml:"search"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"claude"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens" default:"1500"`
		Temperature float32       `yaml:"temperature" default:"0.1"`
		Timeout     time.Duration `yaml:"timeout" default:"60s"`
		MinContent  int           `yaml:"min_content" default:"200"`
	} `yaml:"llm"`

	Reader struct {
		APIKey      string        `yaml:"api_key"`
		APIURL      string        `yaml:"api_url" default:"https://api.firecrawl.dev"`
		Endpoint    string        `yaml:"endpoint" default:"https://r.jina.ai"`
		Timeout     time.Duration `yaml:"timeout" default:"15s"`
		MaxAttempts int           `yaml:"max_attempts" default:"2"`
	} `yaml:"reader"`

	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"20s"`
		HeadlessMode   bool          `yaml:"headless_mode" default:"true"`
		SettleWait     time.Duration `yaml:"settle_wait" default:"3s"`
		MaxAttempts    int           `yaml:"max_attempts" default:"2"`
	} `yaml:"scraper"`

	Extractor struct {
		MinContentLength int           `yaml:"min_content_length" default:"500"`
		RateLimitDelay   time.Duration `yaml:"rate_limit_delay" default:"1s"`
		MaxBatchSize     int           `yaml:"max_batch_size"`
		Parallel         bool          `yaml:"parallel"`
		MaxWorkers       int           `yaml:"max_workers" default:"5"`
		JSHeavyDomains   []string      `yaml:"js_heavy_domains"`
		ReaderDomains    []string      `yaml:"reader_domains"`
	} `yaml:"extractor"`

	PreFilter struct {
		Enabled  bool `yaml:"enabled" default:"true"`
		MaxYears int  `yaml:"max_years" default:"5"`
	} `yaml:"pre_filter"`

	Scoring struct {
		MinScore int          `yaml:"min_score" default:"30"`
		Weights  ScoreWeights `yaml:"weights"`
	} `yaml:"scoring"`

	Profile models.UserProfile `yaml:"profile"`

	Storage struct {
		Path string `yaml:"path" default:"data/jobs.db"`
	} `yaml:"storage"`

	Redis struct {
		URL     string        `yaml:"url"`
		SeenTTL time.Duration `yaml:"seen_ttl" default:"168h"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"logging"`
}

// DefaultJSHeavyDomains lists job boards that render postings client-side
// and need a real browser before any content shows up.
var DefaultJSHeavyDomains = []string{
	"greenhouse.io",
	"lever.co",
	"ashbyhq.com",
	"myworkdayjobs.com",
	"icims.com",
	"smartrecruiters.com",
	"jobvite.com",
	"oraclecloud.com",
	"workforcenow.adp.com",
	"rippling-ats.com",
	"rippling.com",
	"recruitee.com",
	"pinpointhq.com",
	"recruiting.paylocity.com",
}

// DefaultReaderDomains lists job boards known to convert cleanly through
// the remote reader service.
var DefaultReaderDomains = []string{
	"workable.com",
	"wellfound.com",
	"builtin.com",
	"teamtailor.com",
	"workatastartup.com",
	"breezy.hr",
	"homerun.co",
	"notion.site",
	"dover.io",
	"keka.com",
	"careerpuck.com",
}

// DefaultJobSites are the boards queried when the config names none
var DefaultJobSites = []string{
	"greenhouse.io",
	"lever.co",
	"ashbyhq.com",
	"myworkdayjobs.com",
	"jobs.workable.com",
	"wellfound.com",
	"builtin.com",
	"icims.com",
	"smartrecruiters.com",
	"jobvite.com",
}

// DefaultScoreWeights returns the tuned scoring constants
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		ExperienceFit:     30,
		ExperiencePenalty: -50,
		RequiredSkill:     5,
		RequiredSkillCap:  25,
		PreferredSkill:    3,
		PreferredSkillCap: 15,
		LocationMatch:     15,
		RemotePreferred:   10,
		RemoteBonus:       5,
		ExcludedTitle:     -40,
	}
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Search.DateRestrict = "d1"
	config.Search.NumResults = 50
	config.Search.Sites = DefaultJobSites

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-7-sonnet-latest"
	config.LLM.MaxTokens = 1500
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 60 * time.Second
	config.LLM.MinContent = 200

	config.Reader.APIURL = "https://api.firecrawl.dev"
	config.Reader.Endpoint = "https://r.jina.ai"
	config.Reader.Timeout = 15 * time.Second
	config.Reader.MaxAttempts = 2

	config.Scraper.RequestTimeout = 20 * time.Second
	config.Scraper.HeadlessMode = true
	config.Scraper.SettleWait = 3 * time.Second
	config.Scraper.MaxAttempts = 2
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Extractor.MinContentLength = 500
	config.Extractor.RateLimitDelay = 1 * time.Second
	config.Extractor.MaxWorkers = 5
	config.Extractor.JSHeavyDomains = DefaultJSHeavyDomains
	config.Extractor.ReaderDomains = DefaultReaderDomains

	config.PreFilter.Enabled = true
	config.PreFilter.MaxYears = 5

	config.Scoring.MinScore = 30
	config.Scoring.Weights = DefaultScoreWeights()

	config.Profile.MaxYearsOfExperience = 5

	config.Storage.Path = "data/jobs.db"

	config.Redis.SeenTTL = 7 * 24 * time.Hour

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			// Expand environment variables in the YAML content
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		c.Search.APIKey = apiKey
	}

	if engineID := os.Getenv("GOOGLE_CSE_ID"); engineID != "" {
		c.Search.EngineID = engineID
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if readerAPIKey := os.Getenv("FIRECRAWL_API_KEY"); readerAPIKey != "" {
		c.Reader.APIKey = readerAPIKey
	}

	if readerAPIURL := os.Getenv("FIRECRAWL_API_URL"); readerAPIURL != "" {
		c.Reader.APIURL = readerAPIURL
	}

	if endpoint := os.Getenv("READER_ENDPOINT"); endpoint != "" {
		c.Reader.Endpoint = endpoint
	}

	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		c.Storage.Path = dbPath
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if maxYears := os.Getenv("PREFILTER_MAX_YEARS"); maxYears != "" {
		if years, err := strconv.Atoi(maxYears); err == nil {
			c.PreFilter.MaxYears = years
		}
	}

	if minScore := os.Getenv("MIN_SCORE"); minScore != "" {
		if score, err := strconv.Atoi(minScore); err == nil {
			c.Scoring.MinScore = score
		}
	}
}

// Validate checks that required credentials and a usable profile are
// present. A failure here is fatal per the error-handling contract.
func (c *Config) Validate() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("missing required configuration: search.api_key (GOOGLE_API_KEY)")
	}
	if c.Search.EngineID == "" {
		return fmt.Errorf("missing required configuration: search.engine_id (GOOGLE_CSE_ID)")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("missing required configuration: llm.api_key (LLM_API_KEY)")
	}

	validate := validator.New()
	if err := validate.Struct(c.Profile); err != nil {
		return fmt.Errorf("invalid user profile: %w", err)
	}

	return nil
}
