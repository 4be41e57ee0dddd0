package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/museum-members/member-registry-api/internal/platform/logging"
)

// Tiny dev-only staff token issuer + JWKS server.
//
// This is NOT a full OIDC provider. It exists so the API can run locally with
// AUTH_MODE=jwt against real RS256 verification (iss/aud/exp + JWKS).

type issuer struct {
	priv     *rsa.PrivateKey
	kid      string
	iss      string
	aud      string
	ttl      time.Duration
	jwksJSON []byte
}

func main() {
	logger, err := logging.New(getenv("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log config: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	port := getenv("PORT", "5556")
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		logger.Fatal("generate key", zap.Error(err))
	}
	is := &issuer{
		priv: priv,
		kid:  getenv("KID", "dev-kid-1"),
		iss:  getenv("ISSUER", "http://devjwt:5556"),
		aud:  getenv("AUDIENCE", "member-registry"),
		ttl:  getenvDuration("TTL", 30*time.Minute),
	}
	if is.jwksJSON, err = marshalJWKS(priv.PublicKey, is.kid); err != nil {
		logger.Fatal("marshal jwks", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           is.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("devjwt listening",
		zap.String("port", port),
		zap.String("iss", is.iss),
		zap.String("aud", is.aud),
		zap.String("kid", is.kid),
		zap.Duration("ttl", is.ttl),
	)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}

func (is *issuer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Common JWKS path used by many providers.
	r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(is.jwksJSON)
	})

	// Mint a staff token:
	//   GET /token?sub=staff|front-desk
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		token, err := is.mint(sub, now)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   is.iss,
			"aud":   is.aud,
			"exp":   now.Add(is.ttl).Unix(),
		})
	})
	return r
}

func (is *issuer) mint(sub string, now time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    is.iss,
		Audience:  jwt.ClaimStrings{is.aud},
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(now.Add(is.ttl)),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)), // small skew tolerance for local use
		IssuedAt:  jwt.NewNumericDate(now),
	})
	tok.Header["kid"] = is.kid
	return tok.SignedString(is.priv)
}

func marshalJWKS(pub rsa.PublicKey, kid string) ([]byte, error) {
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	enc := base64.RawURLEncoding
	return json.Marshal(struct {
		Keys []jwk `json:"keys"`
	}{Keys: []jwk{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   enc.EncodeToString(pub.N.Bytes()),
		E:   enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()), // big-endian unsigned
	}}})
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
