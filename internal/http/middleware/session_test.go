package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifemap/lifemap-api/internal/identity"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

func signedSessionToken(t *testing.T, secret string, claims SessionClaims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(5 * time.Minute))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func identityProbe(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionIdentity(t *testing.T) {
	expired := SessionClaims{Email: "old@example.com"}
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	subOnly := SessionClaims{}
	subOnly.Subject = "user-42"

	tests := []struct {
		name     string
		header   string
		status   int
		identity string
	}{
		{name: "anonymous", status: http.StatusOK},
		{name: "non bearer", header: "Basic abc", status: http.StatusOK},
		{name: "email claim", header: "Bearer " + signedSessionToken(t, "s3cret", SessionClaims{Email: "sam@example.com"}), status: http.StatusOK, identity: "sam@example.com"},
		{name: "subject fallback", header: "Bearer " + signedSessionToken(t, "s3cret", subOnly), status: http.StatusOK, identity: "user-42"},
		{name: "wrong secret", header: "Bearer " + signedSessionToken(t, "other", SessionClaims{Email: "sam@example.com"}), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signedSessionToken(t, "s3cret", expired), status: http.StatusUnauthorized},
		{name: "no identity claims", header: "Bearer " + signedSessionToken(t, "s3cret", SessionClaims{}), status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
	}
	mw := SessionIdentity(NewHMACVerifier("s3cret"), logging.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw(identityProbe(&got)).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got != tt.identity {
				t.Fatalf("expected identity %q, got %q", tt.identity, got)
			}
		})
	}
}

func TestSessionIdentityNilVerifierPassesThrough(t *testing.T) {
	var got string
	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	SessionIdentity(nil, logging.Discard())(identityProbe(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || got != "" {
		t.Fatalf("expected anonymous pass-through, got status %d identity %q", rec.Code, got)
	}
}

func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string, hits *int32) *httptest.Server {
	t.Helper()
	payload := jwksResponse{Keys: []jwkKey{{
		Kid: kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(intToBytes(key.PublicKey.E)),
	}}}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func signedRSAToken(t *testing.T, key *rsa.PrivateKey, kid, issuer, email string) string {
	t.Helper()
	claims := SessionClaims{Email: email}
	claims.Issuer = issuer
	claims.Audience = jwt.ClaimStrings{"lifemap-web"}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(5 * time.Minute))
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign rsa token: %v", err)
	}
	return signed
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	var hits int32
	server := jwksServer(t, key, "kid-1", &hits)
	issuer := "https://idp.example.com"

	v, err := NewJWKSVerifier(JWKSConfig{JWKSURL: server.URL, Issuer: issuer, Audience: "lifemap-web"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := v.Verify(context.Background(), signedRSAToken(t, key, "kid-1", issuer, "pat@example.com"))
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if got != "pat@example.com" {
			t.Fatalf("unexpected identity %q", got)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected keys to be cached, got %d fetches", hits)
	}

	if _, err := v.Verify(context.Background(), signedRSAToken(t, key, "kid-1", "https://evil.example", "pat@example.com")); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
	if _, err := v.Verify(context.Background(), signedRSAToken(t, key, "kid-unknown", issuer, "pat@example.com")); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
	if _, err := v.Verify(context.Background(), signedSessionToken(t, "s3cret", SessionClaims{Email: "pat@example.com"})); err == nil {
		t.Fatal("expected HS256 token to be rejected")
	}
}

func TestNewJWKSVerifierRequiresConfig(t *testing.T) {
	if _, err := NewJWKSVerifier(JWKSConfig{Issuer: "x"}); err == nil {
		t.Fatal("expected error without jwks url")
	}
	if _, err := NewJWKSVerifier(JWKSConfig{JWKSURL: "http://x"}); err == nil {
		t.Fatal("expected error without issuer")
	}
}

func TestParseRSAPublicKeyRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(intToBytes(key.PublicKey.E))

	parsed, err := parseRSAPublicKey(n, e)
	if err != nil {
		t.Fatalf("parse rsa key: %v", err)
	}
	if parsed.N.Cmp(key.PublicKey.N) != 0 || parsed.E != key.PublicKey.E {
		t.Fatalf("parsed key does not match original")
	}
}

func TestFetchJWKSReturnsErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := fetchJWKS(context.Background(), server.Client(), server.URL); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func intToBytes(v int) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := []byte{}
	for v > 0 {
		out = append([]byte{byte(v & 0xff)}, out...)
		v >>= 8
	}
	return out
}
