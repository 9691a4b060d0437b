package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

func TestEnvAccessor(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	key, err := EnvAccessor{}.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestEnvAccessor_MapsDashes(t *testing.T) {
	t.Setenv("MY_JUDGE_API_KEY", "secret")

	key, err := EnvAccessor{}.Get("my-judge")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestEnvAccessor_Unavailable(t *testing.T) {
	_, err := EnvAccessor{}.Get("definitely-not-configured")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.CREDENTIAL_UNAVAILABLE, "")))
}

func TestStaticAccessor(t *testing.T) {
	acc := NewStaticAccessor(map[string]string{"openai": "sk-static"})

	key, err := acc.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-static", key)

	_, err = acc.Get("anthropic")
	require.Error(t, err)
	assert.Equal(t, types.CREDENTIAL_UNAVAILABLE, types.CodeOf(err))

	acc.Set("anthropic", "sk-new")
	key, err = acc.Get("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-new", key)
}
