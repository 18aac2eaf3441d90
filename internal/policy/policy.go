package policy

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var routeModelContent string

// Decision is the outcome of evaluating a request path against the route
// policy table.
type Decision int

const (
	// Permit lets the request proceed regardless of authentication.
	Permit Decision = iota
	// RequireAuth lets the request proceed only with an authenticated
	// principal.
	RequireAuth
)

// Subjects the route table knows about. Authenticated principals inherit
// everything the anonymous role may reach.
const (
	subjectAnonymous     = "anonymous"
	subjectAuthenticated = "authenticated"
)

// Router decides, per request path, whether a session is required. The table
// is ordered most-specific-first by construction: explicit public patterns
// are granted to the anonymous role, and a catch-all grants everything else
// to authenticated principals only.
type Router struct {
	enforcer casbin.IEnforcer
}

// NewRouter builds a route policy from glob-style public path patterns
// (keyMatch syntax, so "/oauth2/*" covers the whole subtree). All paths not
// matched by a public pattern require authentication.
func NewRouter(publicPaths []string) (*Router, error) {
	m, err := model.NewModelFromString(routeModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse route policy model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create route policy enforcer: %w", err)
	}

	for _, path := range publicPaths {
		if _, err := enforcer.AddPolicy(subjectAnonymous, path); err != nil {
			return nil, fmt.Errorf("add public path %s: %w", path, err)
		}
	}
	if _, err := enforcer.AddPolicy(subjectAuthenticated, "/*"); err != nil {
		return nil, fmt.Errorf("add catch-all path: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy(subjectAuthenticated, subjectAnonymous); err != nil {
		return nil, fmt.Errorf("add role inheritance: %w", err)
	}

	return &Router{enforcer: enforcer}, nil
}

// Decide evaluates a request path for the given authentication state. The
// request is enforced as the authenticated or anonymous subject; authenticated
// principals reach every route through the catch-all grant plus the inherited
// anonymous role, so RequireAuth always means the caller lacks a session.
func (p *Router) Decide(path string, authenticated bool) (Decision, error) {
	subject := subjectAnonymous
	if authenticated {
		subject = subjectAuthenticated
	}

	allowed, err := p.enforcer.Enforce(subject, path)
	if err != nil {
		return RequireAuth, fmt.Errorf("evaluate route policy: %w", err)
	}
	if allowed {
		return Permit, nil
	}
	return RequireAuth, nil
}
