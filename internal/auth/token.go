// Package auth implements the two-step form-token/auth-token issuance of
// §6: a calling website requests a form token (/auth_1), the user approves
// it, and the exchange (/auth_2) mints a bearer token scoped to that
// website/name pair. Tokens are held in an in-memory TokenStore; the
// durable, persistent store is an out-of-scope collaborator a real
// deployment would substitute.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// FormToken is a short-lived, single-use token minted by /auth_1 and
// consumed by /auth_2 to prevent a forged /auth_2 POST from minting a
// token nobody approved.
type FormToken string

// AuthToken is the long-lived bearer token handed back by /auth_2 and
// presented on subsequent API requests via Authorization: Bearer <token>.
type AuthToken string

// Grant records which website/name pair an AuthToken was issued to.
type Grant struct {
	Website   string
	Name      string
	UserAgent string
	IssuedAt  time.Time
}

// TokenStore persists form tokens and issued grants. The in-memory
// implementation below satisfies it for the default daemon and for tests;
// a real deployment's authdb-backed store would implement the same
// interface.
type TokenStore interface {
	// AddFormToken records ftoken as pending, valid for one /auth_2 call.
	AddFormToken(ftoken FormToken)
	// ConsumeFormToken removes ftoken and reports whether it was pending.
	ConsumeFormToken(ftoken FormToken) bool
	// CreateGrant records a new AuthToken's grant.
	CreateGrant(tok AuthToken, grant Grant)
	// Lookup returns the grant for tok, if any.
	Lookup(tok AuthToken) (Grant, bool)
}

// MemoryTokenStore is an in-process TokenStore with no persistence across
// restarts; a durable store is a separate TokenStore implementation.
// AuthTokens are never held in plaintext: CreateGrant/Lookup key the grant
// map by the token's SHA256 hash, so a heap dump or log line that captures
// the map never exposes a usable bearer token.
type MemoryTokenStore struct {
	mu         sync.Mutex
	hasher     *TokenHasher
	formTokens map[FormToken]struct{}
	authGrants map[string]Grant
}

// NewMemoryTokenStore constructs an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		hasher:     NewTokenHasher(),
		formTokens: make(map[FormToken]struct{}),
		authGrants: make(map[string]Grant),
	}
}

func (s *MemoryTokenStore) AddFormToken(ftoken FormToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formTokens[ftoken] = struct{}{}
}

func (s *MemoryTokenStore) ConsumeFormToken(ftoken FormToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.formTokens[ftoken]; !ok {
		return false
	}
	delete(s.formTokens, ftoken)
	return true
}

func (s *MemoryTokenStore) CreateGrant(tok AuthToken, grant Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authGrants[s.hasher.HashTokenSHA256(string(tok))] = grant
}

func (s *MemoryTokenStore) Lookup(tok AuthToken) (Grant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.authGrants[s.hasher.HashTokenSHA256(string(tok))]
	return g, ok
}

// Issuer mints form and auth tokens against a TokenStore.
type Issuer struct {
	store TokenStore
}

// NewIssuer constructs an Issuer backed by store.
func NewIssuer(store TokenStore) *Issuer {
	return &Issuer{store: store}
}

// NewFormToken mints and records a fresh form token for /auth_1.
func (i *Issuer) NewFormToken() (FormToken, error) {
	raw, err := randomHex(16)
	if err != nil {
		return "", err
	}
	ftoken := FormToken(raw)
	i.store.AddFormToken(ftoken)
	return ftoken, nil
}

// Exchange consumes ftoken and, if valid, mints a new AuthToken granted to
// website/name. Returns ok=false if ftoken is unknown or already consumed.
func (i *Issuer) Exchange(ftoken FormToken, website, name, userAgent string) (AuthToken, bool, error) {
	if !i.store.ConsumeFormToken(ftoken) {
		return "", false, nil
	}
	raw, err := randomHex(20)
	if err != nil {
		return "", false, err
	}
	tok := AuthToken(raw)
	i.store.CreateGrant(tok, Grant{Website: website, Name: name, UserAgent: userAgent, IssuedAt: time.Now()})
	return tok, true, nil
}

// Verify reports whether tok is a known, granted AuthToken.
func (i *Issuer) Verify(tok AuthToken) (Grant, bool) {
	return i.store.Lookup(tok)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
