package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()

	require.NoError(t, id1.Validate())
	require.NoError(t, id2.Validate())
	assert.NotEqual(t, id1, id2)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid uuid", input: "a2a619c1-4b68-4b39-8c3a-3b0dbb9e0b1f", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "not a uuid", input: "session-42", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestID_MarshalZero(t *testing.T) {
	var id ID
	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestNewCorrelationID(t *testing.T) {
	c := NewCorrelationID()

	require.NoError(t, c.Validate())
	assert.False(t, c.IsZero())
	assert.NotEqual(t, c, NewCorrelationID())
}

func TestCorrelationID_Validate(t *testing.T) {
	var zero CorrelationID
	assert.Error(t, zero.Validate())
	assert.Error(t, CorrelationID("nope").Validate())
}
