package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyHasherDeterministic(t *testing.T) {
	h := NewLegacyHasher("deployment-salt")

	first, err := h.Hash("pw123456")
	require.NoError(t, err)
	second, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex sha-256
}

func TestLegacyHasherSaltChangesDigest(t *testing.T) {
	a, err := NewLegacyHasher("salt-a").Hash("pw123456")
	require.NoError(t, err)
	b, err := NewLegacyHasher("salt-b").Hash("pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLegacyHasherVerify(t *testing.T) {
	h := NewLegacyHasher("deployment-salt")
	digest, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.True(t, h.Verify("correct horse", digest))
	assert.False(t, h.Verify("wrong horse", digest))
	assert.False(t, h.Verify("", digest))
}

func TestBcryptHasherVerify(t *testing.T) {
	legacy := NewLegacyHasher("deployment-salt")
	h := NewBcryptHasher(4, legacy)

	digest, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.True(t, isBcryptDigest(digest))

	assert.True(t, h.Verify("pw123456", digest))
	assert.False(t, h.Verify("pw1234567", digest))
}

func TestBcryptHasherDigestsDiffer(t *testing.T) {
	h := NewBcryptHasher(4, NewLegacyHasher("deployment-salt"))

	first, err := h.Hash("pw123456")
	require.NoError(t, err)
	second, err := h.Hash("pw123456")
	require.NoError(t, err)

	// Per-record salt: same password, different digests.
	assert.NotEqual(t, first, second)
}

func TestBcryptHasherAcceptsLegacyDigest(t *testing.T) {
	legacy := NewLegacyHasher("deployment-salt")
	legacyDigest, err := legacy.Hash("pw123456")
	require.NoError(t, err)

	h := NewBcryptHasher(4, legacy)
	assert.True(t, h.Verify("pw123456", legacyDigest))
	assert.False(t, h.Verify("other", legacyDigest))
}

func TestLegacyHasherAcceptsBcryptDigest(t *testing.T) {
	legacy := NewLegacyHasher("deployment-salt")
	bcryptDigest, err := NewBcryptHasher(4, legacy).Hash("pw123456")
	require.NoError(t, err)

	assert.True(t, legacy.Verify("pw123456", bcryptDigest))
	assert.False(t, legacy.Verify("other", bcryptDigest))
}
