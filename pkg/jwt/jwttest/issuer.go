// Package jwttest mints Firebase style ID tokens and serves the matching
// certificate document for tests.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	jwtpkg "github.com/nielpattin/quizzy-sub001/pkg/jwt"
)

// Issuer signs tokens with a throwaway RSA key.
type Issuer struct {
	ProjectID string
	KeyID     string

	key     *rsa.PrivateKey
	certPEM string

	mu       sync.Mutex
	server   *httptest.Server
	requests int
}

// Option adjusts minted claims.
type Option func(*jwtpkg.Claims, *jwtlib.Token)

// NewIssuer creates an issuer for projectID. Resources are released through t.Cleanup.
func NewIssuer(t testing.TB, projectID string) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	iss := &Issuer{
		ProjectID: projectID,
		KeyID:     "test-key-1",
		key:       key,
		certPEM:   string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
	t.Cleanup(iss.close)
	return iss
}

// PublicKey returns the verification key.
func (i *Issuer) PublicKey() *rsa.PublicKey {
	return &i.key.PublicKey
}

// CertificatePEM returns the PEM encoded certificate published for KeyID.
func (i *Issuer) CertificatePEM() string {
	return i.certPEM
}

// CertsURL serves {kid: pem} the way the Google x509 endpoint does.
func (i *Issuer) CertsURL() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.server == nil {
		i.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			i.mu.Lock()
			i.requests++
			i.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
			_ = json.NewEncoder(w).Encode(map[string]string{i.KeyID: i.certPEM})
		}))
	}
	return i.server.URL
}

// CertRequests counts how often the certificate endpoint was hit.
func (i *Issuer) CertRequests() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requests
}

// Token mints a signed ID token for uid.
func (i *Issuer) Token(t testing.TB, uid, email string, opts ...Option) string {
	t.Helper()
	now := time.Now()
	claims := &jwtpkg.Claims{
		UserID:   uid,
		Email:    email,
		AuthTime: now.Add(-time.Minute).Unix(),
		Firebase: jwtpkg.FirebaseInfo{SignInProvider: "password"},
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    jwtpkg.IssuerFor(i.ProjectID),
			Audience:  jwtlib.ClaimStrings{i.ProjectID},
			Subject:   uid,
			IssuedAt:  jwtlib.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = i.KeyID
	for _, opt := range opts {
		opt(claims, token)
	}
	signed, err := token.SignedString(i.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// WithName sets the display name claim.
func WithName(name string) Option {
	return func(c *jwtpkg.Claims, _ *jwtlib.Token) { c.Name = name }
}

// ExpiredAt moves the expiry, and the issue time with it, into the past.
func ExpiredAt(at time.Time) Option {
	return func(c *jwtpkg.Claims, _ *jwtlib.Token) {
		c.ExpiresAt = jwtlib.NewNumericDate(at)
		c.IssuedAt = jwtlib.NewNumericDate(at.Add(-time.Hour))
		c.AuthTime = at.Add(-time.Hour).Unix()
	}
}

// IssuedAt overrides the iat claim.
func IssuedAt(at time.Time) Option {
	return func(c *jwtpkg.Claims, _ *jwtlib.Token) { c.IssuedAt = jwtlib.NewNumericDate(at) }
}

// AuthenticatedAt overrides the auth_time claim.
func AuthenticatedAt(at time.Time) Option {
	return func(c *jwtpkg.Claims, _ *jwtlib.Token) { c.AuthTime = at.Unix() }
}

// WithAudience overrides the aud claim.
func WithAudience(aud string) Option {
	return func(c *jwtpkg.Claims, _ *jwtlib.Token) { c.Audience = jwtlib.ClaimStrings{aud} }
}

// WithKeyID overrides the kid header.
func WithKeyID(kid string) Option {
	return func(_ *jwtpkg.Claims, tok *jwtlib.Token) { tok.Header["kid"] = kid }
}

func (i *Issuer) close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.server != nil {
		i.server.Close()
		i.server = nil
	}
}
