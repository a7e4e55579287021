package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)
	assert.NotContains(t, hash, "pw")

	assert.True(t, h.Verify("pw", hash))
	assert.False(t, h.Verify("PW", hash))
	assert.False(t, h.Verify("pw", "not-a-hash"))
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_Validation(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestNewPasswordHasher_DefaultCost(t *testing.T) {
	h := NewPasswordHasher(0)
	assert.Equal(t, DefaultCost, h.cost)

	hash, err := NewPasswordHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
