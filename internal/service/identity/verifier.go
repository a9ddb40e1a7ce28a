package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/nielpattin/quizzy-sub001/pkg/config"
	jwtpkg "github.com/nielpattin/quizzy-sub001/pkg/jwt"
)

const (
	defaultCertTTL   = time.Hour
	certFetchTimeout = 5 * time.Second
)

var (
	ErrUnknownKeyID = errors.New("token signed with unknown key")
	errEmptyToken   = errors.New("id token is empty")
)

// CertVerifier verifies Firebase ID tokens against Google's rotating
// securetoken certificates.
type CertVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// NewCertVerifier builds a verifier for projectID. An empty certsURL
// selects Google's public endpoint.
func NewCertVerifier(projectID, certsURL string, logger *slog.Logger) (*CertVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrProjectIDMissing
	}
	if certsURL == "" {
		certsURL = config.DefaultFirebaseCertsURL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CertVerifier{
		projectID: projectID,
		certsURL:  certsURL,
		client:    &http.Client{Timeout: certFetchTimeout},
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Verify validates idToken and returns the identity it carries.
func (v *CertVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return Identity{}, errEmptyToken
	}
	lookup := func(kid string) (*rsa.PublicKey, error) {
		return v.key(ctx, kid)
	}
	claims, err := jwtpkg.Parse(idToken, v.projectID, lookup, v.now)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UID:    claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Claims: claims,
	}, nil
}

func (v *CertVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	if v.now().Before(v.expiresAt) {
		key, ok := v.keys[kid]
		v.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
		}
		return key, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	// Another request may have refreshed while we waited.
	if !v.now().Before(v.expiresAt) {
		keys, ttl, err := v.fetch(ctx)
		if err != nil {
			return nil, err
		}
		v.keys = keys
		v.expiresAt = v.now().Add(ttl)
		v.logger.Debug("refreshed signing certificates", "count", len(keys), "ttl", ttl)
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
	}
	return key, nil
}

func (v *CertVerifier) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch certificates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch certificates: unexpected status %d", resp.StatusCode)
	}
	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, 0, fmt.Errorf("decode certificates: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseCertificate(certPEM)
		if err != nil {
			return nil, 0, fmt.Errorf("certificate %s: %w", kid, err)
		}
		keys[kid] = key
	}
	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

func parseCertificate(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("invalid PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

// maxAge extracts max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		value, ok := strings.CutPrefix(strings.ToLower(directive), "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultCertTTL
}
