package llm

import (
	"context"

	"jobscout/pkg/models"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// ParseJob extracts a structured posting from raw page text
	ParseJob(ctx context.Context, content, url string) (*models.JobPosting, error)

	// IsHealthy checks if the LLM provider is healthy and available
	IsHealthy(ctx context.Context) error

	// Name returns the name of the LLM provider
	Name() string
}
