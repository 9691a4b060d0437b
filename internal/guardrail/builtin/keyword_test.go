package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
)

func TestNewKeywordFilter_InvalidConfig(t *testing.T) {
	_, err := NewKeywordFilter(KeywordFilterConfig{Name: "empty"})
	require.Error(t, err)

	_, err = NewKeywordFilter(KeywordFilterConfig{
		Name:     "bad-action",
		Keywords: []string{"foo"},
		Action:   "modify",
	})
	require.Error(t, err)
}

func TestKeywordFilter_BlocksWholeWords(t *testing.T) {
	f, err := NewKeywordFilter(KeywordFilterConfig{
		Name:     "profanity",
		Keywords: []string{"bad"},
	})
	require.NoError(t, err)

	result, err := f.Analyze(context.Background(), "that is a bad word", nil)
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionBlock, result.Action)
	assert.Contains(t, result.Reason, "profanity")
	assert.Contains(t, result.Reason, "bad")

	// Substrings are not whole-word matches.
	result, err = f.Analyze(context.Background(), "badge of honor", nil)
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionAllow, result.Action)
}

func TestKeywordFilter_CaseFolding(t *testing.T) {
	f, err := NewKeywordFilter(KeywordFilterConfig{
		Name:     "folded",
		Keywords: []string{"secret"},
	})
	require.NoError(t, err)

	result, err := f.Analyze(context.Background(), "this is SECRET stuff", nil)
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionBlock, result.Action)

	sensitive, err := NewKeywordFilter(KeywordFilterConfig{
		Name:          "exact",
		Keywords:      []string{"secret"},
		CaseSensitive: true,
	})
	require.NoError(t, err)

	result, err = sensitive.Analyze(context.Background(), "this is SECRET stuff", nil)
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionAllow, result.Action)
}

func TestKeywordFilter_WarnAction(t *testing.T) {
	f, err := NewKeywordFilter(KeywordFilterConfig{
		Name:     "softer",
		Keywords: []string{"darn", "heck"},
		Action:   "warn",
	})
	require.NoError(t, err)

	result, err := f.Analyze(context.Background(), "darn it, heck, darn again", nil)
	require.NoError(t, err)
	assert.Equal(t, guardrail.ActionWarn, result.Action)
	// Duplicate matches are reported once.
	assert.Contains(t, result.Reason, "darn, heck")
}

func TestKeywordFilter_RegexMetacharactersQuoted(t *testing.T) {
	f, err := NewKeywordFilter(KeywordFilterConfig{
		Name:     "quoted",
		Keywords: []string{"c++"},
	})
	require.NoError(t, err)

	_, err = f.Analyze(context.Background(), "I write c code", nil)
	require.NoError(t, err)
}
