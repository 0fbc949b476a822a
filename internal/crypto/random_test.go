package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Each call generates a unique token
	token2, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, token2)

	// base64 encoding of 32 bytes should be at least 40 chars
	assert.GreaterOrEqual(t, len(token), 40)
}

func TestGenerateStateToken(t *testing.T) {
	state, err := GenerateStateToken()
	require.NoError(t, err)

	// 32 bytes hex-encoded is exactly 64 characters
	assert.Len(t, state, 64)

	decoded, err := hex.DecodeString(state)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	state2, err := GenerateStateToken()
	require.NoError(t, err)
	assert.NotEqual(t, state, state2)
}
