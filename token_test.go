package bankxatm_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/bankxatm"
)

func TestTokenIssuer(t *testing.T) {
	key := []byte("test-secret")
	issuer := bankxatm.NewTokenIssuer(key)

	t.Run("round trips the handle", func(tt *testing.T) {
		as := assert.New(tt)
		token, err := issuer.Issue(bankxatm.Handle(1834563581361305763))
		require.NoError(tt, err)
		h, err := issuer.Parse(token)
		as.NoError(err)
		as.Equal(bankxatm.Handle(1834563581361305763), h)
	})

	t.Run("rejects tokens signed with another key", func(tt *testing.T) {
		token, err := bankxatm.NewTokenIssuer([]byte("other")).Issue(bankxatm.Handle(5))
		require.NoError(tt, err)
		_, err = issuer.Parse(token)
		assert.ErrorIs(tt, err, bankxatm.ErrNotAuthenticated)
	})

	t.Run("rejects tampered tokens", func(tt *testing.T) {
		token, err := issuer.Issue(bankxatm.Handle(5))
		require.NoError(tt, err)
		_, err = issuer.Parse(token + "x")
		assert.ErrorIs(tt, err, bankxatm.ErrNotAuthenticated)
	})

	t.Run("rejects other signing methods", func(tt *testing.T) {
		as := assert.New(tt)
		claims := jwt.MapClaims{"sid": "5"}
		hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(key)
		require.NoError(tt, err)
		_, err = issuer.Parse(hs384)
		as.ErrorIs(err, bankxatm.ErrNotAuthenticated)

		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(tt, err)
		_, err = issuer.Parse(none)
		as.ErrorIs(err, bankxatm.ErrNotAuthenticated)
	})

	t.Run("rejects tokens without a session", func(tt *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).SignedString(key)
		require.NoError(tt, err)
		_, err = issuer.Parse(token)
		assert.ErrorIs(tt, err, bankxatm.ErrNotAuthenticated)
	})

	t.Run("rejects garbage", func(tt *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(tt, err, bankxatm.ErrNotAuthenticated)
	})
}
