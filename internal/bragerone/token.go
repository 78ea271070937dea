package bragerone

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshLeeway is how long before expiry a token is treated as stale.
// Refreshing early keeps in-flight requests from racing the deadline.
const refreshLeeway = 60 * time.Second

// Token holds the credential pair issued by the BragerOne auth endpoint.
type Token struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"`

	// ExpiresAt is derived from the access token's JWT exp claim.
	// Zero when the token carries no expiry.
	ExpiresAt time.Time `json:"-"`
}

// AccessTokenExpiry extracts the expiry time from a JWT access token
// without verifying the signature. The bridge is a client of the vendor
// API and has no signing key; expiry is only used for refresh scheduling.
//
// Returns:
//   - time.Time: The exp claim, or zero time when the claim is absent
//   - error: ErrInvalidToken if the token is not a parseable JWT
func AccessTokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// deriveExpiry fills ExpiresAt from the access token. Unparseable tokens
// leave ExpiresAt zero so the client falls back to refresh-on-401.
func (t *Token) deriveExpiry() {
	expiry, err := AccessTokenExpiry(t.AccessToken)
	if err != nil {
		t.ExpiresAt = time.Time{}
		return
	}
	t.ExpiresAt = expiry
}

// Stale reports whether the token is expired or inside the refresh leeway.
// Tokens without a known expiry are never considered stale; the client
// relies on 401 responses to trigger refresh for those.
func (t *Token) Stale(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(refreshLeeway).Before(t.ExpiresAt)
}
