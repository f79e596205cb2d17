package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memDenylist struct {
	ids map[string]time.Duration
	err error
}

func (m *memDenylist) Add(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	if m.ids == nil {
		m.ids = map[string]time.Duration{}
	}
	m.ids[jti] = ttl
	return nil
}

func (m *memDenylist) Contains(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.ids[jti]
	return ok, nil
}

func fixedIssuer(now time.Time) *TokenIssuer {
	i := NewTokenIssuer(testSecret, 5*time.Minute, 30*24*time.Hour)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueProducesTypedPair(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	i := fixedIssuer(now)

	access, refresh, err := i.Issue(42)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), access.Exp)
	assert.Equal(t, now.Add(30*24*time.Hour), refresh.Exp)

	ac, err := i.ParseAccess(access.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, ac.TokenType)
	assert.Equal(t, "42", ac.Subject)
	assert.NotEmpty(t, ac.ID)

	rc, err := i.ParseRefresh(context.Background(), refresh.Raw)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, rc.TokenType)
	assert.NotEqual(t, ac.ID, rc.ID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	i := fixedIssuer(time.Now().UTC())
	access, refresh, err := i.Issue(1)
	require.NoError(t, err)

	_, err = i.ParseAccess(refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = i.Refresh(context.Background(), access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshMintsAccessForSameSubject(t *testing.T) {
	i := fixedIssuer(time.Now().UTC())
	_, refresh, err := i.Issue(7)
	require.NoError(t, err)

	access, err := i.Refresh(context.Background(), refresh.Raw)
	require.NoError(t, err)
	claims, err := i.ParseAccess(access.Token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
}

func TestRefreshRejectsExpiredAndTampered(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	i := fixedIssuer(start)
	_, refresh, err := i.Issue(7)
	require.NoError(t, err)

	i.now = func() time.Time { return start.Add(31 * 24 * time.Hour) }
	_, err = i.Refresh(context.Background(), refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	i.now = func() time.Time { return start }
	parts := strings.Split(refresh.Raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = i.Refresh(context.Background(), tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = i.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("another-secret-another-secret!!", time.Minute, time.Hour)
	_, foreign, err := other.Issue(7)
	require.NoError(t, err)
	_, err = i.Refresh(context.Background(), foreign.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsOtherSigningMethods(t *testing.T) {
	i := fixedIssuer(time.Now().UTC())
	claims := &Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = i.ParseAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeDenylistsRefreshToken(t *testing.T) {
	now := time.Now().UTC()
	deny := &memDenylist{}
	i := fixedIssuer(now).WithDenylist(deny)
	_, refresh, err := i.Issue(3)
	require.NoError(t, err)

	require.NoError(t, i.Revoke(context.Background(), refresh.Raw))
	require.Len(t, deny.ids, 1)
	for _, ttl := range deny.ids {
		assert.InDelta(t, (30 * 24 * time.Hour).Seconds(), ttl.Seconds(), 1)
	}

	_, err = i.Refresh(context.Background(), refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDenylistFailureFailsClosed(t *testing.T) {
	deny := &memDenylist{}
	i := fixedIssuer(time.Now().UTC()).WithDenylist(deny)
	_, refresh, err := i.Issue(3)
	require.NoError(t, err)

	deny.err = errors.New("redis down")
	_, err = i.Refresh(context.Background(), refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeWithoutDenylistIsNoop(t *testing.T) {
	i := fixedIssuer(time.Now().UTC())
	assert.NoError(t, i.Revoke(context.Background(), "garbage"))
}
