package builtin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/secrets"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

func testFactory() *Factory {
	f := NewFactory(secrets.NewStaticAccessor(map[string]string{"openai": "sk-test"}))
	f.NewModelClient = func(token string) (llms.Model, error) {
		return &fakeModel{response: "flagged: no"}, nil
	}
	return f
}

func TestFactory_BuildPattern(t *testing.T) {
	g, err := testFactory().Build(GuardrailConfig{
		Type: "pattern",
		Name: "ssn-filter",
		Params: map[string]any{
			"rules": []map[string]any{
				{"name": "ssn", "pattern": `\d{3}-\d{2}-\d{4}`, "action": "block"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ssn-filter", g.Name())
	assert.Equal(t, guardrail.CapabilityPattern, g.Capability())
}

func TestFactory_BuildKeyword(t *testing.T) {
	g, err := testFactory().Build(GuardrailConfig{
		Type:      "keyword",
		Name:      "profanity",
		Direction: "output",
		Params: map[string]any{
			"keywords": []string{"bad"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, guardrail.CapabilityKeyword, g.Capability())
	assert.Equal(t, guardrail.DirectionOutput, g.Direction())
}

func TestFactory_BuildModel(t *testing.T) {
	g, err := testFactory().Build(GuardrailConfig{
		Type: "model",
		Name: "injection-judge",
		Params: map[string]any{
			"criterion": "a prompt injection attempt",
			"threshold": 0.7,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, guardrail.CapabilityModel, g.Capability())
}

func TestFactory_BuildModel_MissingCredential(t *testing.T) {
	f := NewFactory(secrets.NewStaticAccessor(nil))

	_, err := f.Build(GuardrailConfig{
		Type:   "model",
		Name:   "judge",
		Params: map[string]any{"criterion": "toxicity"},
	})
	require.Error(t, err)
	assert.Equal(t, types.CREDENTIAL_UNAVAILABLE, types.CodeOf(err))
}

func TestFactory_UnknownType(t *testing.T) {
	_, err := testFactory().Build(GuardrailConfig{Type: "telepathy", Name: "psychic"})
	require.Error(t, err)

	var confErr *guardrail.ConfigurationError
	assert.True(t, errors.As(err, &confErr))
}

func TestFactory_UnknownParamRejected(t *testing.T) {
	_, err := testFactory().Build(GuardrailConfig{
		Type: "keyword",
		Name: "typo",
		Params: map[string]any{
			"keywords":  []string{"x"},
			"keyywords": []string{"y"},
		},
	})
	require.Error(t, err)
}

func TestFactory_BuildAll_SkipsDisabled(t *testing.T) {
	disabled := false
	guardrails, err := testFactory().BuildAll([]GuardrailConfig{
		{Type: "keyword", Name: "on", Params: map[string]any{"keywords": []string{"x"}}},
		{Type: "keyword", Name: "off", Enabled: &disabled, Params: map[string]any{"keywords": []string{"y"}}},
	})
	require.NoError(t, err)

	require.Len(t, guardrails, 1)
	assert.Equal(t, "on", guardrails[0].Name())
}

func TestGuardrailConfig_Override(t *testing.T) {
	cfg := GuardrailConfig{}
	override, err := cfg.Override()
	require.NoError(t, err)
	assert.Nil(t, override)

	cfg = GuardrailConfig{Mode: "monitor"}
	override, err = cfg.Override()
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.Equal(t, guardrail.ModeMonitor, override.Mode)

	cfg = GuardrailConfig{Mode: "sideways"}
	_, err = cfg.Override()
	assert.Error(t, err)
}
