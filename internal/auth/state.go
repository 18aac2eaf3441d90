package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultStateTTL bounds how long a login may sit between initiation and
// callback before the anti-forgery state expires.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState is returned when a callback presents a state value that was
// never issued, already consumed, or has expired. The three cases are not
// distinguished.
var ErrInvalidState = errors.New("invalid or replayed login state")

// PendingLogin records an initiated but not yet completed login flow.
type PendingLogin struct {
	// Provider names the identity provider the flow was initiated against.
	Provider string
	// RedirectURI is the optional caller-requested post-login destination,
	// already validated against the allowed origins at initiation time.
	RedirectURI string
	// CreatedAt is when the flow was initiated.
	CreatedAt time.Time
}

// StateRegistry issues and consumes single-use anti-forgery state values.
// Each pending flow is independent; a state value completes the callback at
// most once, even under concurrent replay attempts.
type StateRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]PendingLogin
}

// NewStateRegistry builds a registry with the given pending-flow TTL.
// A non-positive ttl falls back to DefaultStateTTL.
func NewStateRegistry(ttl time.Duration) *StateRegistry {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateRegistry{
		ttl:     ttl,
		pending: make(map[string]PendingLogin),
	}
}

// Issue generates a random state value and registers the pending flow.
func (r *StateRegistry) Issue(provider, redirectURI string) (string, error) {
	state, err := GenerateNonce()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpiredLocked(time.Now())
	r.pending[state] = PendingLogin{
		Provider:    provider,
		RedirectURI: redirectURI,
		CreatedAt:   time.Now(),
	}
	return state, nil
}

// Consume atomically removes and returns the pending flow for the state.
// A second Consume with the same value fails with ErrInvalidState.
func (r *StateRegistry) Consume(state string) (PendingLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.pending[state]
	if !ok {
		return PendingLogin{}, ErrInvalidState
	}
	delete(r.pending, state)

	if time.Since(pending.CreatedAt) > r.ttl {
		return PendingLogin{}, ErrInvalidState
	}
	return pending, nil
}

// Len reports the number of pending flows, for diagnostics.
func (r *StateRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *StateRegistry) purgeExpiredLocked(now time.Time) {
	for state, pending := range r.pending {
		if now.Sub(pending.CreatedAt) > r.ttl {
			delete(r.pending, state)
		}
	}
}

// GenerateNonce generates a random URL-safe nonce string.
func GenerateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
