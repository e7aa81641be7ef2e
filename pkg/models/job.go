package models

// JobPosting represents a structured job posting extracted from job boards.
// The JSON tags mirror the schema the LLM parser is asked to emit.
type JobPosting struct {
	URL               string   `json:"source_url"`
	Title             string   `json:"job_title"`
	Company           string   `json:"company"`
	Location          string   `json:"location,omitempty"`
	Remote            bool     `json:"remote"`
	EmploymentType    string   `json:"employment_type,omitempty"`
	SalaryRange       string   `json:"salary_range,omitempty"`
	YearsOfExperience int      `json:"yoe_required"`
	RequiredSkills    []string `json:"required_skills"`
	NiceToHaveSkills  []string `json:"nice_to_have_skills"`
	Responsibilities  []string `json:"responsibilities"`
	Summary           string   `json:"job_summary,omitempty"`
	SourceDomain      string   `json:"source_domain"`
}

// ScoredJob pairs a parsed posting with its relevance score
type ScoredJob struct {
	Job   *JobPosting `json:"job"`
	Score int         `json:"score"`
}

// ExtractionMethod identifies which extraction strategy produced a result
type ExtractionMethod string

const (
	MethodReader  ExtractionMethod = "reader"
	MethodBrowser ExtractionMethod = "browser"
	MethodStatic  ExtractionMethod = "static"
	MethodFailed  ExtractionMethod = "failed"
)

// ExtractionResult represents the outcome of extracting one URL
type ExtractionResult struct {
	URL     string           `json:"url"`
	Content string           `json:"content,omitempty"`
	Method  ExtractionMethod `json:"method"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// FilterReason identifies why the pre-parse filter rejected a posting
type FilterReason string

const (
	ReasonExperienceExceeded  FilterReason = "yoe_exceeded"
	ReasonNonDomesticLocation FilterReason = "non_us_location"
	ReasonCitizenshipRequired FilterReason = "citizenship_required"
)

// PreFilterResult represents the outcome of the pre-parse filter for one posting
type PreFilterResult struct {
	Passed  bool         `json:"passed"`
	Reason  FilterReason `json:"reason,omitempty"`
	Details string       `json:"details,omitempty"`
}

// SearchResult is one candidate URL plus metadata from the discovery service
type SearchResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

// UserProfile holds the preferences jobs are scored against.
// Loaded once at startup and never mutated by the pipeline.
type UserProfile struct {
	MaxYearsOfExperience int      `yaml:"max_yoe" validate:"gte=0,lte=50"`
	RequiredSkills       []string `yaml:"required_skills" validate:"required,min=1"`
	PreferredSkills      []string `yaml:"preferred_skills"`
	PreferredLocations   []string `yaml:"preferred_locations"`
	RemoteOnly           bool     `yaml:"remote_only"`
	ExcludeTitleKeywords []string `yaml:"exclude_title_keywords"`
}
