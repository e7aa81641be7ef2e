package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/internal/router"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// ClaudeProvider implements the LLM provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client anthropic.Client
	config *config.Config
	logger *logrus.Logger
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeProvider{
		client: client,
		config: cfg,
		logger: utils.GetLogger(),
	}
}

// ParseJob extracts a structured posting from raw page text using Claude
func (cp *ClaudeProvider) ParseJob(ctx context.Context, content, url string) (*models.JobPosting, error) {
	startTime := time.Now()

	cp.logger.WithFields(logrus.Fields{
		"url":            url,
		"content_length": len(content),
		"provider":       "claude",
	}).Info("Starting job parsing with Claude")

	// Truncate to fit token limits, roughly 3 chars per token
	maxContentLength := cp.config.LLM.MaxTokens * 3
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + "..."
		cp.logger.WithField("url", url).Debug("Content truncated to fit token limits")
	}

	prompt := cp.buildParsePrompt(content)

	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.config.LLM.Model),
		MaxTokens:   int64(cp.config.LLM.MaxTokens),
		Temperature: anthropic.Float(float64(cp.config.LLM.Temperature)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	job, err := cp.parseClaudeResponse(response, url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response: %w", err)
	}

	cp.logger.WithFields(logrus.Fields{
		"url":             url,
		"job_title":       job.Title,
		"company":         job.Company,
		"processing_time": time.Since(startTime),
		"provider":        "claude",
	}).Info("Job parsing completed successfully")

	return job, nil
}

// buildParsePrompt creates the extraction prompt for Claude
func (cp *ClaudeProvider) buildParsePrompt(content string) string {
	return fmt.Sprintf(`Extract job posting details from this content. Return valid JSON only.

Required JSON schema:
{
  "job_title": "string - exact job title",
  "company": "string - company name",
  "location": "string or null - job location",
  "remote": "boolean - true if remote/hybrid mentioned",
  "employment_type": "string or null - full-time/part-time/contract/intern",
  "salary_range": "string or null - salary if mentioned",
  "yoe_required": "integer - minimum years of experience (0 if not specified or entry-level)",
  "required_skills": ["array of required technical skills"],
  "nice_to_have_skills": ["array of preferred/bonus skills"],
  "responsibilities": ["array of key responsibilities - max 5"],
  "job_summary": "string - 2-3 sentence summary"
}

Important:
- For yoe_required: Extract MINIMUM years. "3-5 years" = 3, "5+ years" = 5, "entry level" = 0
- For skills: Include programming languages, frameworks, tools, cloud platforms
- Use null for fields not found in the posting
- Keep arrays concise (max 5 items each)
- Return ONLY valid JSON, no additional text or explanation

Raw job posting content:
%s`, content)
}

// parseClaudeResponse parses the Claude API response into a JobPosting
func (cp *ClaudeProvider) parseClaudeResponse(response *anthropic.Message, url string) (*models.JobPosting, error) {
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("empty response from Claude")
	}

	var responseText string
	for _, content := range response.Content {
		textContent := content.AsText()
		responseText = textContent.Text
		break
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in Claude response")
	}

	// Strip markdown code fences if present
	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, "```json") {
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)
	} else if strings.HasPrefix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)
	}

	cp.logger.WithField("response_text", responseText).Debug("Claude response received")

	var job models.JobPosting
	if err := json.Unmarshal([]byte(responseText), &job); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response from Claude: %w, response: %s", err, responseText)
	}

	job.URL = url
	job.SourceDomain = router.Domain(url)

	if job.Title == "" || job.Company == "" {
		return nil, utils.NewNotJobPostingError(fmt.Sprintf("missing title or company for %s", url))
	}

	return &job, nil
}

// IsHealthy checks if the Claude provider is healthy and available
func (cp *ClaudeProvider) IsHealthy(ctx context.Context) error {
	if cp.config.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	_, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cp.config.LLM.Model),
		MaxTokens: 500,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})

	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}

	return nil
}

// Name returns the name of the LLM provider
func (cp *ClaudeProvider) Name() string {
	return "claude"
}
