package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndParse(t *testing.T) {
	ts, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	player := uuid.New()
	token, err := ts.Issue(player, "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, player.String(), claims.Subject)
	assert.Equal(t, "Alice", claims.Name)

	assert.True(t, ts.IsValid(token))
	id, ok := ts.UserIDOf(token)
	assert.True(t, ok)
	assert.Equal(t, player, id)
	assert.Equal(t, "Alice", ts.DisplayNameOf(token))
	assert.Equal(t, "", ts.DisplayNameOf("garbage"))
}

func TestTokenService_Rejects(t *testing.T) {
	ts, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	player := uuid.New()

	t.Run("empty", func(t *testing.T) {
		assert.False(t, ts.IsValid(""))
	})

	t.Run("garbage", func(t *testing.T) {
		assert.False(t, ts.IsValid("not.a.token"))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenService("other-secret", time.Hour)
		token, _ := other.Issue(player, "")
		assert.False(t, ts.IsValid(token))
	})

	t.Run("expired", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		assert.False(t, ts.IsValid(token))
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: player.String()}}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		assert.False(t, ts.IsValid(token))
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.False(t, ts.IsValid(token))
	})

	t.Run("subject is not a player id", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		assert.True(t, ts.IsValid(token))
		_, ok := ts.UserIDOf(token)
		assert.False(t, ok)
	})

	t.Run("issue without player", func(t *testing.T) {
		_, err := ts.Issue(uuid.Nil, "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_Blacklist(t *testing.T) {
	ts, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	token, _ := ts.Issue(uuid.New(), "")
	require.NoError(t, ts.Blacklist(token))

	assert.False(t, ts.IsValid(token))
	_, err = ts.Parse(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, ok := ts.UserIDOf(token)
	assert.False(t, ok)

	assert.Equal(t, 0, ts.PruneBlacklist())
	assert.Error(t, ts.Blacklist("garbage"))

	// expired entries are pruned
	ts.mu.Lock()
	ts.blacklist["old"] = time.Now().Add(-time.Second)
	ts.mu.Unlock()
	assert.Equal(t, 1, ts.PruneBlacklist())
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	ts, err := NewTokenService("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, ts.ttl)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	id := uuid.New()

	_, ok := d.NameOf(id)
	assert.False(t, ok)

	d.Register(id, "  Alice ")
	name, ok := d.NameOf(id)
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	d.Register(id, "")
	name, _ = d.NameOf(id)
	assert.Equal(t, "Alice", name, "blank names must not overwrite")

	d.Register(uuid.Nil, "Nobody")
	assert.Equal(t, 1, d.Len())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		d, err := LoadDirectory(filepath.Join(dir, "none.json"))
		require.NoError(t, err)
		assert.Equal(t, 0, d.Len())
	})

	t.Run("valid file", func(t *testing.T) {
		id := uuid.New()
		path := filepath.Join(dir, "users.json")
		content := `[{"id":"` + id.String() + `","name":"Bob"}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		d, err := LoadDirectory(path)
		require.NoError(t, err)
		name, ok := d.NameOf(id)
		assert.True(t, ok)
		assert.Equal(t, "Bob", name)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

		_, err := LoadDirectory(path)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "parse"))
	})
}
