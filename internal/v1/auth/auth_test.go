package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func accessToken(t *testing.T, sub string) string {
	return signToken(t, jwt.MapClaims{
		"sub":  sub,
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)
}

func TestValidatorAcceptsAccessToken(t *testing.T) {
	v := NewValidator(testSecret)
	sub, err := v.Validate(accessToken(t, "user-42"))
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestValidatorRejections(t *testing.T) {
	v := NewValidator(testSecret)

	// Wrong secret.
	bad := signToken(t, jwt.MapClaims{
		"sub": "user-42", "type": "access", "exp": time.Now().Add(time.Hour).Unix(),
	}, "other-secret")
	_, err := v.Validate(bad)
	assert.Error(t, err)

	// Expired.
	expired := signToken(t, jwt.MapClaims{
		"sub": "user-42", "type": "access", "exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	_, err = v.Validate(expired)
	assert.Error(t, err)

	// Refresh tokens are not access tokens.
	refresh := signToken(t, jwt.MapClaims{
		"sub": "user-42", "type": "refresh", "exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	_, err = v.Validate(refresh)
	assert.ErrorIs(t, err, errNotAccessToken)

	// Missing subject.
	anonymous := signToken(t, jwt.MapClaims{
		"type": "access", "exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	_, err = v.Validate(anonymous)
	assert.ErrorIs(t, err, errNoSubject)

	_, err = v.Validate("not-a-token")
	assert.Error(t, err)
}

func TestResolverTiers(t *testing.T) {
	r := NewResolver(NewValidator(testSecret), nil)
	ctx := context.Background()

	id := r.Resolve(ctx, accessToken(t, "user-42"), "guest-7", "conn-1")
	assert.Equal(t, KindUser, id.Kind)
	assert.Equal(t, "user-42", id.Key())
	assert.True(t, id.Reconnectable())

	// Invalid token demotes to guest, never rejects.
	id = r.Resolve(ctx, "garbage", "guest-7", "conn-1")
	assert.Equal(t, KindGuest, id.Kind)
	assert.Equal(t, "guest:guest-7", id.Key())
	assert.True(t, id.Reconnectable())

	// No credentials at all: the connection is the identity.
	id = r.Resolve(ctx, "", "", "conn-1")
	assert.Equal(t, KindConnection, id.Kind)
	assert.Equal(t, "conn-1", id.Key())
	assert.False(t, id.Reconnectable())

	// Oversized guest ids are treated as absent.
	long := make([]byte, maxGuestIDLen+1)
	for i := range long {
		long[i] = 'g'
	}
	id = r.Resolve(ctx, "", string(long), "conn-1")
	assert.Equal(t, KindConnection, id.Kind)
}

type stubDirectory struct{ names map[string]string }

func (d stubDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	if name, ok := d.names[userID]; ok {
		return name, nil
	}
	return "", assert.AnError
}

func TestResolverDirectoryLookup(t *testing.T) {
	dir := stubDirectory{names: map[string]string{"user-42": "Alice"}}
	r := NewResolver(NewValidator(testSecret), dir)
	ctx := context.Background()

	id := r.Resolve(ctx, accessToken(t, "user-42"), "", "conn-1")
	assert.Equal(t, "Alice", id.Name)

	// Directory misses leave the name empty but keep the identity.
	id = r.Resolve(ctx, accessToken(t, "user-99"), "", "conn-1")
	assert.Equal(t, KindUser, id.Kind)
	assert.Empty(t, id.Name)
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://play.example.com", "http://localhost:3000"})

	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("https://play.example.com")))
	assert.True(t, check(req("http://localhost:3000")))
	assert.True(t, check(req("")), "non-browser clients send no origin")
	assert.False(t, check(req("https://evil.example.com")))

	wildcard := OriginChecker([]string{"*"})
	assert.True(t, wildcard(req("https://anywhere.example")))
}
