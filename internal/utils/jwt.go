package utils // package utils provides token issuing and password hashing helpers

import (
    "context"  // denylist lookups are network calls
    "errors"   // sentinel errors
    "fmt"      // error wrapping
    "strconv"  // subject <-> user id conversion
    "time"     // expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
    "github.com/google/uuid"       // unique token ids (jti)
)

// Token types carried in the token_type claim.  A refresh token can never be
// used where an access token is expected and vice versa.
const (
    TokenTypeAccess  = "access"
    TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for any token that is malformed, wrongly
// signed, expired, of the wrong type or revoked.  Callers never learn which.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string, Exp its UTC expiration.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived token used to obtain new access
// tokens.  It is itself a signed JWT, so no server-side row is needed to
// verify it.
type RefreshToken struct {
    Raw string    // signed JWT returned to the client in a cookie
    Exp time.Time // UTC expiration time
}

// Claims are the JWT claims of both token kinds.  Subject holds the user id.
type Claims struct {
    TokenType string `json:"token_type"`
    jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) {
    id, err := strconv.ParseUint(c.Subject, 10, 64)
    if err != nil || id == 0 {
        return 0, ErrInvalidToken
    }
    return id, nil
}

// Denylist records revoked refresh token ids until they would have expired
// anyway.  It is backed by Redis in production (repository.TokenRepo).
type Denylist interface {
    Add(ctx context.Context, jti string, ttl time.Duration) error
    Contains(ctx context.Context, jti string) (bool, error)
}

// TokenIssuer signs and verifies HS256 access/refresh token pairs.
type TokenIssuer struct {
    secret     []byte
    accessTTL  time.Duration
    refreshTTL time.Duration
    deny       Denylist         // optional; nil disables revocation
    now        func() time.Time // replaced in tests
}

// NewTokenIssuer builds an issuer for the given secret and token lifetimes.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
    return &TokenIssuer{
        secret:     []byte(secret),
        accessTTL:  accessTTL,
        refreshTTL: refreshTTL,
        now:        func() time.Time { return time.Now().UTC() },
    }
}

// WithDenylist enables refresh token revocation.  A nil denylist keeps it
// disabled.
func (i *TokenIssuer) WithDenylist(d Denylist) *TokenIssuer {
    i.deny = d
    return i
}

// AccessTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Issue creates a fresh token pair for the user.
func (i *TokenIssuer) Issue(userID uint64) (AccessToken, RefreshToken, error) {
    access, err := i.issueAccess(userID)
    if err != nil {
        return AccessToken{}, RefreshToken{}, err
    }
    raw, exp, err := i.sign(userID, TokenTypeRefresh, i.refreshTTL)
    if err != nil {
        return AccessToken{}, RefreshToken{}, err
    }
    return access, RefreshToken{Raw: raw, Exp: exp}, nil
}

// Refresh verifies a refresh token and mints a new access token for its
// subject.  The refresh token itself is left untouched (no rotation).
func (i *TokenIssuer) Refresh(ctx context.Context, raw string) (AccessToken, error) {
    claims, err := i.ParseRefresh(ctx, raw)
    if err != nil {
        return AccessToken{}, err
    }
    uid, err := claims.UserID()
    if err != nil {
        return AccessToken{}, err
    }
    return i.issueAccess(uid)
}

// ParseAccess verifies an access token.  Refresh tokens are rejected.
func (i *TokenIssuer) ParseAccess(raw string) (*Claims, error) {
    return i.parse(raw, TokenTypeAccess)
}

// ParseRefresh verifies a refresh token and checks the denylist.  A failed
// denylist lookup is reported as ErrInvalidToken.
func (i *TokenIssuer) ParseRefresh(ctx context.Context, raw string) (*Claims, error) {
    claims, err := i.parse(raw, TokenTypeRefresh)
    if err != nil {
        return nil, err
    }
    if i.deny != nil {
        revoked, err := i.deny.Contains(ctx, claims.ID)
        if err != nil || revoked {
            return nil, ErrInvalidToken
        }
    }
    return claims, nil
}

// Revoke denylists a refresh token for the rest of its lifetime.  It is a
// no-op without a denylist.
func (i *TokenIssuer) Revoke(ctx context.Context, raw string) error {
    if i.deny == nil {
        return nil
    }
    claims, err := i.parse(raw, TokenTypeRefresh)
    if err != nil {
        return err
    }
    ttl := claims.ExpiresAt.Time.Sub(i.now())
    if ttl <= 0 {
        return nil
    }
    if err := i.deny.Add(ctx, claims.ID, ttl); err != nil {
        return fmt.Errorf("revoke refresh token: %w", err)
    }
    return nil
}

func (i *TokenIssuer) issueAccess(userID uint64) (AccessToken, error) {
    raw, exp, err := i.sign(userID, TokenTypeAccess, i.accessTTL)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: raw, Exp: exp}, nil
}

func (i *TokenIssuer) sign(userID uint64, typ string, ttl time.Duration) (string, time.Time, error) {
    now := i.now()
    exp := now.Add(ttl)
    claims := &Claims{
        TokenType: typ,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
            ID:        uuid.NewString(),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(i.secret)
    if err != nil {
        return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
    }
    return signed, exp, nil
}

func (i *TokenIssuer) parse(raw, wantType string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims,
        func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(i.now),
    )
    if err != nil || !tok.Valid {
        return nil, ErrInvalidToken
    }
    if claims.TokenType != wantType || claims.ID == "" {
        return nil, ErrInvalidToken
    }
    if _, err := claims.UserID(); err != nil {
        return nil, err
    }
    return claims, nil
}
