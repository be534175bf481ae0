package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/easel/pkg/deck"
)

// Defaults applied by Validate when the corresponding sections are
// omitted from easel.yml.
const (
	DefaultMinConfidence  = 0.35
	DefaultQueryTimeoutMS = 2000
	DefaultFetchTimeoutMS = 3000
	DefaultMaxConcurrent  = 8
	DefaultWindow         = 3
	DefaultRefresh        = "@every 5m"
)

// EaselConfig represents the top-level easel.yml configuration.
type EaselConfig struct {
	Version       string             `yaml:"version"`
	Services      map[string]Service `yaml:"services"`
	LayoutService LayoutService      `yaml:"layout_service"`
	Negotiation   *NegotiationConfig `yaml:"negotiation,omitempty"`
	Fallback      FallbackConfig     `yaml:"fallback"`
	Narrative     *NarrativeConfig   `yaml:"narrative,omitempty"`
	Dispatch      *DispatchConfig    `yaml:"dispatch,omitempty"`
	Registry      *RegistryConfig    `yaml:"registry,omitempty"`
}

// Service is a single remote content service entry.
type Service struct {
	Kind deck.ContentKind `yaml:"kind"` // Required: text, chart, diagram, or infographic
	URL  string           `yaml:"url"`  // Required: service base URL
}

// LayoutService is the layout collaborator entry.
type LayoutService struct {
	URL string `yaml:"url"` // Required: layout service base URL
}

// NegotiationConfig specifies negotiator behavior.
type NegotiationConfig struct {
	MinConfidence  *float64 `yaml:"min_confidence,omitempty"`   // Candidates below this are excluded (default 0.35)
	QueryTimeoutMS *int     `yaml:"query_timeout_ms,omitempty"` // Per-service can-handle timeout (default 2000)
	Priority       []string `yaml:"priority,omitempty"`         // Deterministic tie-break order, highest first
}

// FallbackConfig names the universal-fit triple used when negotiation or
// reconciliation cannot produce a validated decision.
type FallbackConfig struct {
	Service string `yaml:"service"` // Required: must name a configured service
	Variant string `yaml:"variant"` // Required
	Layout  string `yaml:"layout"`  // Required: layout id known to the layout service
}

// NarrativeConfig specifies the narrative context window.
type NarrativeConfig struct {
	Window *int `yaml:"window,omitempty"` // Neighbor summaries per direction (default 3)
}

// DispatchConfig specifies generation fan-out limits.
type DispatchConfig struct {
	MaxConcurrent *int `yaml:"max_concurrent,omitempty"` // In-flight generation ceiling (default 8)
}

// RegistryConfig specifies capability refresh behavior.
type RegistryConfig struct {
	Refresh        string `yaml:"refresh,omitempty"`          // Cron spec for periodic refresh (default "@every 5m")
	FetchTimeoutMS *int   `yaml:"fetch_timeout_ms,omitempty"` // Per-service capability fetch timeout (default 3000)
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted sections.
func (c *EaselConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: at least one content service
	if len(c.Services) == 0 {
		return fmt.Errorf("no content services defined")
	}

	for name, svc := range c.Services {
		if err := svc.Validate(name); err != nil {
			return err
		}
	}

	if c.LayoutService.URL == "" {
		return fmt.Errorf("layout_service.url is required")
	}

	// Apply negotiation defaults
	if c.Negotiation == nil {
		c.Negotiation = &NegotiationConfig{}
	}
	if c.Negotiation.MinConfidence == nil {
		defaultConfidence := DefaultMinConfidence
		c.Negotiation.MinConfidence = &defaultConfidence
	}
	if *c.Negotiation.MinConfidence < 0 || *c.Negotiation.MinConfidence > 1 {
		return fmt.Errorf("negotiation.min_confidence must be in [0,1], got %v", *c.Negotiation.MinConfidence)
	}
	if c.Negotiation.QueryTimeoutMS == nil {
		defaultTimeout := DefaultQueryTimeoutMS
		c.Negotiation.QueryTimeoutMS = &defaultTimeout
	}
	if *c.Negotiation.QueryTimeoutMS < 1 {
		return fmt.Errorf("negotiation.query_timeout_ms must be >= 1, got %d", *c.Negotiation.QueryTimeoutMS)
	}

	// Every priority entry must name a configured service
	seen := make(map[string]bool)
	for _, name := range c.Negotiation.Priority {
		if _, exists := c.Services[name]; !exists {
			return fmt.Errorf("negotiation.priority names unknown service '%s'", name)
		}
		if seen[name] {
			return fmt.Errorf("negotiation.priority lists service '%s' twice", name)
		}
		seen[name] = true
	}

	// Required: universal-fit fallback triple
	if c.Fallback.Service == "" || c.Fallback.Variant == "" || c.Fallback.Layout == "" {
		return fmt.Errorf("fallback.service, fallback.variant and fallback.layout are all required")
	}
	if _, exists := c.Services[c.Fallback.Service]; !exists {
		return fmt.Errorf("fallback.service names unknown service '%s'", c.Fallback.Service)
	}

	// Apply narrative defaults
	if c.Narrative == nil {
		c.Narrative = &NarrativeConfig{}
	}
	if c.Narrative.Window == nil {
		defaultWindow := DefaultWindow
		c.Narrative.Window = &defaultWindow
	}
	if *c.Narrative.Window < 0 {
		return fmt.Errorf("narrative.window must be >= 0, got %d", *c.Narrative.Window)
	}

	// Apply dispatch defaults
	if c.Dispatch == nil {
		c.Dispatch = &DispatchConfig{}
	}
	if c.Dispatch.MaxConcurrent == nil {
		defaultConcurrent := DefaultMaxConcurrent
		c.Dispatch.MaxConcurrent = &defaultConcurrent
	}
	if *c.Dispatch.MaxConcurrent < 1 {
		return fmt.Errorf("dispatch.max_concurrent must be >= 1, got %d", *c.Dispatch.MaxConcurrent)
	}

	// Apply registry defaults
	if c.Registry == nil {
		c.Registry = &RegistryConfig{}
	}
	if c.Registry.Refresh == "" {
		c.Registry.Refresh = DefaultRefresh
	}
	if c.Registry.FetchTimeoutMS == nil {
		defaultFetch := DefaultFetchTimeoutMS
		c.Registry.FetchTimeoutMS = &defaultFetch
	}
	if *c.Registry.FetchTimeoutMS < 1 {
		return fmt.Errorf("registry.fetch_timeout_ms must be >= 1, got %d", *c.Registry.FetchTimeoutMS)
	}

	return nil
}

// Validate performs validation on a single service entry.
func (s *Service) Validate(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if err := s.Kind.Validate(); err != nil {
		return fmt.Errorf("service '%s': %w", name, err)
	}

	if s.URL == "" {
		return fmt.Errorf("service '%s': url is required", name)
	}

	return nil
}

// PriorityRank returns the tie-break rank for a service: its index in
// negotiation.priority, or len(priority) for services not listed. Lower
// ranks win; equal ranks fall through to lexicographic service ID.
func (c *EaselConfig) PriorityRank(serviceID string) int {
	for i, name := range c.Negotiation.Priority {
		if name == serviceID {
			return i
		}
	}
	return len(c.Negotiation.Priority)
}

// Load reads and validates easel.yml from the specified path.
func Load(path string) (*EaselConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config EaselConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
