package jwt_test

import (
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	jwtpkg "github.com/nielpattin/quizzy-sub001/pkg/jwt"
	"github.com/nielpattin/quizzy-sub001/pkg/jwt/jwttest"
)

func lookupFor(iss *jwttest.Issuer) jwtpkg.KeyLookup {
	return func(kid string) (*rsa.PublicKey, error) {
		if kid != iss.KeyID {
			return nil, errors.New("unknown kid")
		}
		return iss.PublicKey(), nil
	}
}

func TestParseAcceptsValidToken(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.WithName("Ada"))

	claims, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Subject != "uid-1" || claims.Email != "ada@example.com" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Firebase.SignInProvider != "password" {
		t.Fatalf("unexpected provider %q", claims.Firebase.SignInProvider)
	}
}

func TestParseRejectsWrongAudience(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.WithAudience("other-project"))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtlib.ErrTokenInvalidAudience) {
		t.Fatalf("expected audience error, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.ExpiredAt(time.Now().Add(-time.Hour)))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtlib.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestParseHonoursLeeway(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.ExpiredAt(time.Now().Add(-2*time.Minute)))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); err != nil {
		t.Fatalf("expected token inside leeway to pass, got %v", err)
	}
}

func TestParseRejectsFutureAuthTime(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.AuthenticatedAt(time.Now().Add(time.Hour)))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtpkg.ErrAuthTimeInFuture) {
		t.Fatalf("expected auth_time error, got %v", err)
	}
}

func TestParseRejectsFutureIssuedAt(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.IssuedAt(time.Now().Add(time.Hour)))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtlib.ErrTokenUsedBeforeIssued) {
		t.Fatalf("expected issued-at error, got %v", err)
	}
}

func TestParseAcceptsSkewInsideLeeway(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	skewed := time.Now().Add(2 * time.Minute)
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.IssuedAt(skewed), jwttest.AuthenticatedAt(skewed))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); err != nil {
		t.Fatalf("expected skewed token inside leeway to pass, got %v", err)
	}
}

func TestParseRequiresKeyID(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, "uid-1", "ada@example.com", jwttest.WithKeyID(""))

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtpkg.ErrMissingKeyID) {
		t.Fatalf("expected missing kid error, got %v", err)
	}
}

func TestParseRejectsLongSubject(t *testing.T) {
	iss := jwttest.NewIssuer(t, "quizzy-test")
	token := iss.Token(t, strings.Repeat("x", 129), "ada@example.com")

	if _, err := jwtpkg.Parse(token, "quizzy-test", lookupFor(iss), nil); !errors.Is(err, jwtpkg.ErrInvalidSubject) {
		t.Fatalf("expected subject error, got %v", err)
	}
}

func TestParseRejectsHS256(t *testing.T) {
	claims := jwtlib.RegisteredClaims{
		Issuer:    jwtpkg.IssuerFor("quizzy-test"),
		Audience:  jwtlib.ClaimStrings{"quizzy-test"},
		Subject:   "uid-1",
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	tok.Header["kid"] = "test-key-1"
	signed, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	iss := jwttest.NewIssuer(t, "quizzy-test")
	if _, err := jwtpkg.Parse(signed, "quizzy-test", lookupFor(iss), nil); err == nil {
		t.Fatalf("expected HS256 token to be rejected")
	}
}
