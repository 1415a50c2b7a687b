package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/nishiisharma/Assignment1.kombee/internal/security"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := security.NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	// Same plaintext hashes differently each call (random salt), yet both verify.
	otherHash, err := hasher.Hash("password123")
	assert.NoError(t, err)
	assert.NotEqual(t, hash, otherHash)

	assert.True(t, hasher.Verify("password123", hash))
	assert.True(t, hasher.Verify("password123", otherHash))
	assert.False(t, hasher.Verify("wrongpassword", hash))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	hasher := security.NewPasswordHasher(bcrypt.MinCost)

	// A malformed or foreign hash verifies false, it never panics or errors.
	assert.False(t, hasher.Verify("password123", ""))
	assert.False(t, hasher.Verify("password123", "not-a-bcrypt-hash"))
	assert.False(t, hasher.Verify("password123", "$argon2id$v=19$m=65536"))
}

func TestNewPasswordHasher_CostFallback(t *testing.T) {
	// Out-of-range costs must still produce a working hasher.
	hasher := security.NewPasswordHasher(-1)
	hash, err := hasher.Hash("secret")
	assert.NoError(t, err)
	assert.True(t, hasher.Verify("secret", hash))
}
