package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// Manager manages LLM providers and their lifecycle
type Manager struct {
	config   *config.Config
	factory  *Factory
	provider Provider
	logger   *logrus.Logger
	mu       sync.RWMutex
	healthy  bool
}

// NewManager creates a new LLM manager instance
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:  cfg,
		factory: NewFactory(cfg),
		logger:  utils.GetLogger(),
	}
}

// Start initializes the LLM manager and creates the provider
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithField("provider", m.config.LLM.Provider).Info("Starting LLM manager")

	provider, err := m.factory.CreateProvider()
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	m.provider = provider

	ctx, cancel := context.WithTimeout(context.Background(), m.config.LLM.Timeout)
	defer cancel()

	if err := m.provider.IsHealthy(ctx); err != nil {
		m.logger.WithError(err).Warn("LLM provider health check failed - parsing will fail until it recovers")
		m.healthy = false
	} else {
		m.healthy = true
		m.logger.WithField("provider", m.provider.Name()).Info("LLM manager started successfully")
	}

	return nil
}

// Stop shuts down the LLM manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping LLM manager")
	m.provider = nil
	m.healthy = false
	return nil
}

// ParseJob extracts a structured posting from raw extracted text.
// Content shorter than the configured floor is rejected before any API
// call is made; a truncated extraction never produces a useful parse.
func (m *Manager) ParseJob(ctx context.Context, content, url string) (*models.JobPosting, error) {
	m.mu.RLock()
	provider := m.provider
	healthy := m.healthy
	m.mu.RUnlock()

	if provider == nil {
		return nil, fmt.Errorf("LLM manager not started or provider not available")
	}

	if !healthy {
		return nil, fmt.Errorf("LLM provider is not available - check API key configuration (set LLM_API_KEY environment variable)")
	}

	if len(content) < m.config.LLM.MinContent {
		return nil, utils.NewLLMError(fmt.Sprintf("content too short to parse (%d chars, need %d)", len(content), m.config.LLM.MinContent))
	}

	return provider.ParseJob(ctx, content, url)
}

// IsHealthy checks if the LLM manager and provider are healthy
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && m.provider != nil
}

// ProviderName returns the name of the current LLM provider
func (m *Manager) ProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider.Name()
	}
	return "none"
}

// CheckHealth performs a health check on the LLM provider
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return fmt.Errorf("LLM provider not available")
	}

	err := provider.IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = (err == nil)
	m.mu.Unlock()

	return err
}
