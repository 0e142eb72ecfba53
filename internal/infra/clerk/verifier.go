package clerk

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for any token that fails verification.
var ErrUnauthorized = errors.New("clerk: invalid session token")

// Session holds the verified identity extracted from a Clerk session token.
type Session struct {
	UserID          string
	AuthorizedParty string
	SessionID       string
}

// SessionVerifier verifies bearer tokens and yields the caller identity.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*Session, error)
}

// Options configures the Clerk verifier.
type Options struct {
	Issuer            string
	Audience          string
	AuthorizedParties []string
	HTTPClient        *http.Client
	KeyTTL            time.Duration
}

// Verifier validates Clerk-issued RS256 session JWTs against the instance
// JWKS endpoint. Keys are cached and refreshed on unknown kid.
type Verifier struct {
	issuer     string
	audience   string
	parties    map[string]struct{}
	httpClient *http.Client
	parser     *jwt.Parser

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
	ttl     time.Duration
}

// NewVerifier constructs a verifier for the given Clerk instance issuer.
func NewVerifier(opts Options) (*Verifier, error) {
	issuer := strings.TrimRight(strings.TrimSpace(opts.Issuer), "/")
	if issuer == "" {
		return nil, errors.New("clerk: issuer is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := opts.KeyTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	parties := make(map[string]struct{}, len(opts.AuthorizedParties))
	for _, p := range opts.AuthorizedParties {
		if p = strings.TrimSpace(p); p != "" {
			parties[p] = struct{}{}
		}
	}
	return &Verifier{
		issuer:     issuer,
		audience:   strings.TrimSpace(opts.Audience),
		parties:    parties,
		httpClient: httpClient,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keys:       make(map[string]*rsa.PublicKey),
		ttl:        ttl,
	}, nil
}

// VerifySession checks signature, time claims, issuer, audience and the
// authorized party of a Clerk session token.
func (v *Verifier) VerifySession(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	tok, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("missing kid")
		}
		return v.keyFor(ctx, kid)
	})
	if err != nil || tok == nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if iss, _ := claims["iss"].(string); strings.TrimRight(iss, "/") != v.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrUnauthorized)
	}
	if v.audience != "" && !audienceContains(claims["aud"], v.audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrUnauthorized)
	}
	if exp, ok := claims["exp"].(float64); !ok || time.Now().Unix() > int64(exp) {
		return nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
	}

	azp, _ := claims["azp"].(string)
	if len(v.parties) > 0 {
		if _, ok := v.parties[azp]; !ok {
			return nil, fmt.Errorf("%w: unauthorized party %q", ErrUnauthorized, azp)
		}
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}
	sid, _ := claims["sid"].(string)

	return &Session{UserID: sub, AuthorizedParty: azp, SessionID: sid}, nil
}

func (v *Verifier) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key := v.keys[kid]
	stale := time.Since(v.fetched) > v.ttl
	v.mu.RUnlock()
	if key != nil && !stale {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		// Fall back to a cached key if the refresh failed.
		v.mu.RLock()
		key = v.keys[kid]
		v.mu.RUnlock()
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key = v.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("clerk: unknown kid %q", kid)
	}
	return key, nil
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.issuer+"/.well-known/jwks.json", nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clerk: fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clerk: jwks status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("clerk: decode jwks: %w", err)
	}

	next := make(map[string]*rsa.PublicKey)
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		next[k.Kid] = pub
	}
	if len(next) == 0 {
		return errors.New("clerk: jwks contained no usable keys")
	}

	v.mu.Lock()
	v.keys = next
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

func audienceContains(aud any, required string) bool {
	switch v := aud.(type) {
	case string:
		return v == required
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == required {
				return true
			}
		}
	}
	return false
}
