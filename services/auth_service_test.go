package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-league-go/database"
	"race-league-go/models"
)

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	t.Helper()
	store := database.NewMemoryStore()
	user := &models.User{Name: "ALICE", Email: "alice@example.com", Role: models.RoleParticipant}
	require.NoError(t, user.HashPassword("s3cret"))
	require.NoError(t, store.Users().CreateUser(context.Background(), user))
	return NewAuthService(store.Users(), "test-secret", time.Hour), user
}

func TestAuthService_Login(t *testing.T) {
	auth, user := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), " Alice@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Empty(t, resp.User.Password)
	assert.NotEmpty(t, resp.Token)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleParticipant, claims.Role)
	assert.Equal(t, "race-league-go", claims.Issuer)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthFixture(t)

	_, err := auth.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(context.Background(), "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GetUserFromToken(t *testing.T) {
	auth, user := newAuthFixture(t)

	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	found, err := auth.GetUserFromToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)

	_, err = auth.GetUserFromToken(context.Background(), token+"x")
	assert.Error(t, err)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	auth, user := newAuthFixture(t)

	other := NewAuthService(nil, "another-secret", time.Hour)
	token, err := other.GenerateToken(user)
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	assert.Error(t, err)

	expired := NewAuthService(nil, "test-secret", time.Hour)
	claims := JWTClaims{
		UserID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(expired.jwtSecret)
	require.NoError(t, err)
	_, err = auth.ValidateToken(stale)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(none)
	assert.Error(t, err)
}
