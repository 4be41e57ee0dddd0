package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/museum-members/member-registry-api/internal/platform/auth/jwtverifier"
	"github.com/museum-members/member-registry-api/internal/platform/config"
)

func TestIssuer_TokenVerifiesAgainstJWKS(t *testing.T) {
	t.Parallel()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	is := &issuer{priv: priv, kid: "k1", iss: "dev-iss", aud: "member-registry", ttl: time.Minute}
	if is.jwksJSON, err = marshalJWKS(priv.PublicKey, is.kid); err != nil {
		t.Fatalf("marshalJWKS: %v", err)
	}
	srv := httptest.NewServer(is.routes())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/token?sub=staff|front-desk")
	if err != nil {
		t.Fatalf("GET /token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	v := jwtverifier.New(config.JWTConfig{
		Issuer:      is.iss,
		Audience:    is.aud,
		JWKSURL:     srv.URL + "/.well-known/jwks.json",
		HTTPTimeout: 2 * time.Second,
	})
	sub, err := v.Verify(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "staff|front-desk" {
		t.Fatalf("sub=%q", sub)
	}
}

func TestIssuer_TokenRequiresSubject(t *testing.T) {
	t.Parallel()

	is := &issuer{jwksJSON: []byte(`{"keys":[]}`)}
	rec := httptest.NewRecorder()
	is.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}
