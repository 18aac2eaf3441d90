package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCookieName is the session cookie name.
	DefaultCookieName = "gate.session"

	// DefaultSessionTTL is the default session lifetime.
	DefaultSessionTTL = 12 * time.Hour

	// TokenLength is the length of generated session tokens in bytes.
	TokenLength = 32

	// defaultStoreCapacity bounds the in-memory store; sessions past the
	// capacity are evicted least-recently-used.
	defaultStoreCapacity = 65536
)

// Session binds an opaque token to a principal on the server side. The token
// itself is never stored; only its hash is kept for lookup.
type Session struct {
	ID             string
	Principal      Principal
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

// Store is the pluggable session backend. Implementations must be safe for
// concurrent use and must not let callers of Resolve distinguish expired,
// revoked, and never-issued tokens.
type Store interface {
	// Create issues a new session for the principal and returns the opaque
	// token the client presents on subsequent requests.
	Create(ctx context.Context, principal Principal) (string, error)

	// Resolve returns the principal bound to the token, or (nil, nil) when no
	// live session matches. It never reports why a token did not resolve.
	Resolve(ctx context.Context, token string) (*Principal, error)

	// Revoke terminates the session for the token. Revoking an absent session
	// is not an error.
	Revoke(ctx context.Context, token string) error
}

// GenerateToken generates a cryptographically random session token.
// Returns the token (hex string) and its SHA-256 hex hash for storage.
func GenerateToken() (string, string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}
	token := hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken hashes a session token for storage and lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// MemoryStore keeps sessions in process memory with TTL-based expiry, backed
// by an expirable LRU so the store stays bounded.
type MemoryStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	ttl      time.Duration
}

// NewMemoryStore builds an in-memory session store. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, *Session](defaultStoreCapacity, nil, ttl),
		ttl:      ttl,
	}
}

// Create issues a session token for the principal. A token colliding with a
// live session is regenerated, so the returned token is unique.
func (s *MemoryStore) Create(_ context.Context, principal Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		token, hash, err := GenerateToken()
		if err != nil {
			return "", err
		}
		if _, exists := s.sessions.Get(hash); exists {
			continue
		}

		now := time.Now()
		s.sessions.Add(hash, &Session{
			ID:             uuid.NewString(),
			Principal:      principal,
			CreatedAt:      now,
			LastAccessedAt: now,
			ExpiresAt:      now.Add(s.ttl),
		})
		return token, nil
	}
}

// Resolve returns the principal for a live session token, or (nil, nil).
func (s *MemoryStore) Resolve(_ context.Context, token string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := HashToken(token)
	session, ok := s.sessions.Get(hash)
	if !ok {
		return nil, nil
	}
	if time.Now().After(session.ExpiresAt) {
		s.sessions.Remove(hash)
		return nil, nil
	}

	session.LastAccessedAt = time.Now()
	principal := session.Principal
	return &principal, nil
}

// Revoke removes the session for the token; absent sessions are a no-op.
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Remove(HashToken(token))
	return nil
}

// Len reports the number of live sessions, for diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}
