package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Leeway absorbs clock skew between the identity provider and this host.
const Leeway = 5 * time.Minute

const maxSubjectLength = 128

var (
	ErrMissingKeyID     = errors.New("token header has no kid")
	ErrInvalidSubject   = errors.New("token subject is empty or too long")
	ErrAuthTimeInFuture = errors.New("token auth_time is in the future")
)

// Claims models the payload of a Firebase ID token.
type Claims struct {
	UserID        string       `json:"user_id,omitempty"`
	Email         string       `json:"email,omitempty"`
	EmailVerified bool         `json:"email_verified,omitempty"`
	Name          string       `json:"name,omitempty"`
	Picture       string       `json:"picture,omitempty"`
	AuthTime      int64        `json:"auth_time,omitempty"`
	Firebase      FirebaseInfo `json:"firebase"`
	jwtlib.RegisteredClaims
}

// FirebaseInfo is the provider specific "firebase" claim.
type FirebaseInfo struct {
	SignInProvider string `json:"sign_in_provider,omitempty"`
	Tenant         string `json:"tenant,omitempty"`
}

// KeyLookup resolves the public key for a token's kid header.
type KeyLookup func(kid string) (*rsa.PublicKey, error)

// IssuerFor returns the issuer Firebase stamps on ID tokens for projectID.
func IssuerFor(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// Parse validates an RS256 ID token issued for projectID and extracts its claims.
func Parse(token, projectID string, lookup KeyLookup, now func() time.Time) (*Claims, error) {
	if projectID == "" {
		return nil, errors.New("project id required")
	}
	if now == nil {
		now = time.Now
	}
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodRS256.Alg()}),
		jwtlib.WithIssuer(IssuerFor(projectID)),
		jwtlib.WithAudience(projectID),
		jwtlib.WithIssuedAt(),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(Leeway),
		jwtlib.WithTimeFunc(now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrMissingKeyID
		}
		key, err := lookup(kid)
		if err != nil {
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if claims.Subject == "" || len(claims.Subject) > maxSubjectLength {
		return nil, ErrInvalidSubject
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(now().Add(Leeway)) {
		return nil, fmt.Errorf("%w: %d", ErrAuthTimeInFuture, claims.AuthTime)
	}
	return claims, nil
}
