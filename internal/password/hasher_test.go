package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/internal/password"
)

// Tests hash at bcrypt's minimum cost so the suite stays fast; cost
// handling itself is covered separately.
func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	return password.NewHasher(zap.NewNop(), bcrypt.MinCost)
}

func TestHashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	ok, err := hasher.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashProducesDistinctSalts(t *testing.T) {
	hasher := newTestHasher(t)

	first, err := hasher.Hash("same input")
	require.NoError(t, err)
	second, err := hasher.Hash("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	ok, err := hasher.Verify("same input", first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = hasher.Verify("same input", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyMalformedHashReturnsFalse(t *testing.T) {
	hasher := newTestHasher(t)

	for _, stored := range []string{
		"",
		"not a hash",
		"$2a$12$tooshort",
		"$9z$aa$garbagegarbagegarbagegarbagegarbagegarbagegarbage",
	} {
		ok, err := hasher.Verify("anything", stored)
		assert.NoError(t, err, "stored=%q", stored)
		assert.False(t, ok, "stored=%q", stored)
	}
}

func TestDummyHashIsWellFormed(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(password.DummyHash))
	require.NoError(t, err)
	assert.Equal(t, password.DefaultCost, cost)

	// The dummy hash must never verify a caller-supplied credential.
	hasher := newTestHasher(t)
	ok, err := hasher.Verify("anything", password.DummyHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCostOutsideRangeFallsBack(t *testing.T) {
	logger := zap.NewNop()

	assert.Equal(t, password.DefaultCost, password.NewHasher(logger, 0).Cost())
	assert.Equal(t, password.DefaultCost, password.NewHasher(logger, 99).Cost())
	assert.Equal(t, bcrypt.MinCost, password.NewHasher(logger, bcrypt.MinCost).Cost())
	assert.Equal(t, password.DefaultCost, password.NewHasher(logger, password.DefaultCost).Cost())
}
