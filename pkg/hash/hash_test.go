package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := Bcrypt{Cost: bcrypt.MinCost}

	digest, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", digest)

	assert.True(t, h.Verify("Secret123", digest))
	assert.False(t, h.Verify("secret123", digest))
	assert.False(t, h.Verify("Secret123", "not-a-bcrypt-hash"))
}

func TestBcrypt_SaltsEachHash(t *testing.T) {
	t.Parallel()

	h := Bcrypt{Cost: bcrypt.MinCost}

	a, err := h.Hash("password")
	require.NoError(t, err)
	b, err := h.Hash("password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
