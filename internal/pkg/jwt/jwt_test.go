package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestGenerateAndParse(t *testing.T) {
	for _, userID := range []int64{0, 1, 9223372036854775807} {
		token, err := GenerateToken(userID, testSecret, 24)
		require.NoError(t, err)

		claims, err := ParseToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.True(t, claims.ExpiresAt.After(time.Now().Add(23*time.Hour)))
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken(7, testSecret, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
		want   error
	}{
		{name: "wrong secret", token: valid, secret: "other", want: ErrInvalidToken},
		{name: "empty", token: "", secret: testSecret, want: ErrInvalidToken},
		{name: "garbage", token: "not-a-jwt", secret: testSecret, want: ErrInvalidToken},
		{
			name:   "expired",
			token:  signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(-time.Minute)),
			secret: testSecret,
			want:   ErrExpiredToken,
		},
		{
			name:   "none algorithm",
			token:  signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, time.Now().Add(time.Hour)),
			secret: testSecret,
			want:   ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}
}
