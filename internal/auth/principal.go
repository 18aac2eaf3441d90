package auth

import "context"

// Principal is the normalized identity of an authenticated caller, built from
// the attributes returned by the identity provider at login time. It is
// immutable once constructed and lives only as long as its session.
type Principal struct {
	// Subject is the provider-unique stable identifier (OIDC "sub").
	Subject string
	// Name is the display name reported by the provider.
	Name string
	// Email is the email address reported by the provider.
	Email string
	// Provider names the identity provider that issued this identity.
	Provider string
}

type principalContextKey struct{}

// SetPrincipal stores the resolved principal on the request context for
// downstream consumers. The gateway never keeps ambient security state; the
// context is the only carrier.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFrom retrieves the resolved principal from the context. The second
// return value is false for anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
