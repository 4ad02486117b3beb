package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	h, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", h)
	assert.True(t, Verify("s3cret-pass", h))
}

func TestVerify_WrongPassword(t *testing.T) {
	h, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.False(t, Verify("wrong-pass", h))
}

func TestVerify_MalformedDigest(t *testing.T) {
	assert.False(t, Verify("anything", "not-a-bcrypt-digest"))
	assert.False(t, Verify("anything", ""))
}

func TestHash_SaltedPerCall(t *testing.T) {
	h1, err := Hash("same-input")
	require.NoError(t, err)
	h2, err := Hash("same-input")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
