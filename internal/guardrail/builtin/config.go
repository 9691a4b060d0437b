package builtin

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/secrets"
)

// GuardrailConfig is one guardrail declaration from configuration.
type GuardrailConfig struct {
	Type      string `yaml:"type" json:"type" mapstructure:"type"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	Enabled   *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty" mapstructure:"enabled"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty" mapstructure:"direction"`

	// Mode overrides the performance-class default execution mode.
	Mode            string `yaml:"mode,omitempty" json:"mode,omitempty" mapstructure:"mode"`
	AcknowledgeSlow bool   `yaml:"acknowledge_slow,omitempty" json:"acknowledge_slow,omitempty" mapstructure:"acknowledge_slow"`

	OnError string        `yaml:"on_error,omitempty" json:"on_error,omitempty" mapstructure:"on_error"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`

	// Service names the credential used by model-backed guardrails.
	Service string `yaml:"service,omitempty" json:"service,omitempty" mapstructure:"service"`

	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" mapstructure:"params"`
}

// IsEnabled returns the enabled flag, defaulting to true.
func (c GuardrailConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Override translates the mode fields into a resolved mode override, or nil
// when no override is configured.
func (c GuardrailConfig) Override() (*guardrail.ModeOverride, error) {
	if c.Mode == "" {
		return nil, nil
	}
	mode, err := guardrail.ParseExecutionMode(c.Mode)
	if err != nil {
		return nil, err
	}
	return &guardrail.ModeOverride{Mode: mode, AcknowledgeSlow: c.AcknowledgeSlow}, nil
}

// Factory constructs guardrails from configuration. Model-backed guardrails
// get their credentials from the injected secrets accessor; NewModelClient
// may be replaced in tests to avoid real network clients.
type Factory struct {
	Secrets        secrets.Accessor
	NewModelClient func(token string) (llms.Model, error)
}

// NewFactory creates a Factory over the given secrets accessor. The default
// model client is an OpenAI-compatible langchaingo client.
func NewFactory(accessor secrets.Accessor) *Factory {
	return &Factory{
		Secrets: accessor,
		NewModelClient: func(token string) (llms.Model, error) {
			return openai.New(openai.WithToken(token))
		},
	}
}

// BuildAll constructs every enabled guardrail in order.
func (f *Factory) BuildAll(configs []GuardrailConfig) ([]guardrail.Guardrail, error) {
	guardrails := make([]guardrail.Guardrail, 0, len(configs))
	for i, cfg := range configs {
		if !cfg.IsEnabled() {
			continue
		}
		g, err := f.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("guardrail config at index %d: %w", i, err)
		}
		guardrails = append(guardrails, g)
	}
	return guardrails, nil
}

// Build constructs a single guardrail from its configuration.
func (f *Factory) Build(cfg GuardrailConfig) (guardrail.Guardrail, error) {
	switch cfg.Type {
	case "pattern":
		var pc PatternFilterConfig
		if err := decodeParams(cfg, &pc); err != nil {
			return nil, err
		}
		pc.Name = cfg.Name
		pc.Direction = cfg.Direction
		return NewPatternFilter(pc)

	case "keyword":
		var kc KeywordFilterConfig
		if err := decodeParams(cfg, &kc); err != nil {
			return nil, err
		}
		kc.Name = cfg.Name
		kc.Direction = cfg.Direction
		return NewKeywordFilter(kc)

	case "model":
		var mc ModelJudgeConfig
		if err := decodeParams(cfg, &mc); err != nil {
			return nil, err
		}
		mc.Name = cfg.Name
		mc.Direction = cfg.Direction

		service := cfg.Service
		if service == "" {
			service = "openai"
		}
		token, err := f.Secrets.Get(service)
		if err != nil {
			return nil, fmt.Errorf("credentials for model guardrail %q: %w", cfg.Name, err)
		}
		client, err := f.NewModelClient(token)
		if err != nil {
			return nil, fmt.Errorf("model client for guardrail %q: %w", cfg.Name, err)
		}
		return NewModelJudge(mc, client)

	default:
		return nil, guardrail.NewConfigurationError(cfg.Name,
			fmt.Sprintf("unknown guardrail type: %q", cfg.Type))
	}
}

// decodeParams decodes the free-form params map into a typed config.
func decodeParams(cfg GuardrailConfig, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(cfg.Params); err != nil {
		return guardrail.NewConfigurationError(cfg.Name, err.Error())
	}
	return nil
}
