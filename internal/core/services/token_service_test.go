package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

const (
	tokenSecret = "super-secret-key-for-testing"
	tokenIssuer = "kanso-test"
)

// tokenFixture registers one user in a memory store and issues tokens at a
// controllable instant.
type tokenFixture struct {
	users *repository.MemoryUserRepository
	user  *domain.User
	clock time.Time
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	f := &tokenFixture{
		users: repository.NewMemoryStore(repository.Seed{}).Users(),
		clock: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	auth := NewAuthService(f.users, WithAuthClock(f.now))
	user, err := auth.Register(context.Background(), RegisterInput{Email: "Token@Kanso.app", Password: "StrongPassword123!"})
	require.NoError(t, err)
	f.user = user
	return f
}

func (f *tokenFixture) now() time.Time { return f.clock }

func (f *tokenFixture) service(issuer string, ttl time.Duration) *TokenService {
	return NewTokenService(tokenSecret, issuer, ttl, f.users, WithTokenClock(f.now))
}

func TestTokenService_GenerateAndValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: token of a registered user", func(t *testing.T) {
		f := newTokenFixture(t)
		service := f.service(tokenIssuer, time.Hour)

		tokenString, err := service.GenerateToken(f.user.ID)
		require.NoError(t, err)
		require.NotEmpty(t, tokenString)

		extractedID, err := service.ValidateToken(ctx, tokenString)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, extractedID)
		assert.Equal(t, time.Hour, service.TokenTTL())
	})

	t.Run("Success: still valid just before expiry", func(t *testing.T) {
		f := newTokenFixture(t)
		service := f.service(tokenIssuer, time.Hour)

		tokenString, err := service.GenerateToken(f.user.ID)
		require.NoError(t, err)

		f.clock = f.clock.Add(59 * time.Minute)
		_, err = service.ValidateToken(ctx, tokenString)
		assert.NoError(t, err)
	})

	t.Run("Fail: expired once the clock passes the TTL", func(t *testing.T) {
		f := newTokenFixture(t)
		service := f.service(tokenIssuer, time.Hour)

		tokenString, err := service.GenerateToken(f.user.ID)
		require.NoError(t, err)

		f.clock = f.clock.Add(2 * time.Hour)
		extractedID, err := service.ValidateToken(ctx, tokenString)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token is expired")
		assert.Empty(t, extractedID)
	})

	t.Run("Fail: signed token for a user that is not in the store", func(t *testing.T) {
		f := newTokenFixture(t)
		service := f.service(tokenIssuer, time.Hour)

		tokenString, err := service.GenerateToken("ghost-user")
		require.NoError(t, err)

		extractedID, err := service.ValidateToken(ctx, tokenString)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.Contains(t, err.Error(), "user no longer exists")
		assert.Empty(t, extractedID)
	})

	t.Run("Fail: wrong secret", func(t *testing.T) {
		f := newTokenFixture(t)
		tokenString, err := f.service(tokenIssuer, time.Hour).GenerateToken(f.user.ID)
		require.NoError(t, err)

		attacker := NewTokenService("wrong-key", tokenIssuer, time.Hour, f.users, WithTokenClock(f.now))
		extractedID, err := attacker.ValidateToken(ctx, tokenString)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token")
		assert.Empty(t, extractedID)
	})

	t.Run("Fail: wrong issuer", func(t *testing.T) {
		f := newTokenFixture(t)
		tokenString, err := f.service("correct-issuer", time.Hour).GenerateToken(f.user.ID)
		require.NoError(t, err)

		extractedID, err := f.service("wrong-issuer", time.Hour).ValidateToken(ctx, tokenString)
		require.Error(t, err)
		assert.Equal(t, "invalid token issuer", err.Error())
		assert.Empty(t, extractedID)
	})

	t.Run("Fail: 'none' algorithm", func(t *testing.T) {
		f := newTokenFixture(t)

		token := jwt.New(jwt.SigningMethodNone)
		claims := token.Claims.(jwt.MapClaims)
		claims["sub"] = f.user.ID
		claims["iss"] = tokenIssuer

		fakeTokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = f.service(tokenIssuer, time.Hour).ValidateToken(ctx, fakeTokenString)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected signing method")
	})

	t.Run("Fail: malformed token string", func(t *testing.T) {
		f := newTokenFixture(t)

		extractedID, err := f.service(tokenIssuer, time.Hour).ValidateToken(ctx, "this-is-not-a-jwt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token")
		assert.Empty(t, extractedID)
	})
}

func TestAuthService_RegisterAndLogin_MemoryStore(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	assert.Equal(t, "token@kanso.app", f.user.Email)
	assert.Equal(t, f.clock, f.user.CreatedAt)

	auth := NewAuthService(f.users, WithAuthClock(f.now))

	stored, err := f.users.GetByEmail(ctx, "token@kanso.app")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, stored.ID)
	assert.NotEmpty(t, stored.PasswordHash)

	user, err := auth.Login(ctx, LoginInput{Email: " TOKEN@kanso.app", Password: "StrongPassword123!"})
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, user.ID)

	_, err = auth.Login(ctx, LoginInput{Email: "token@kanso.app", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = auth.Register(ctx, RegisterInput{Email: "token@KANSO.app", Password: "AnotherPassword1"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}
