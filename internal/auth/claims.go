package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseIDTokenClaims decodes the claims of a provider-issued ID token without
// re-verifying its signature. The token is only ever read straight off the
// token-endpoint response of a TLS code exchange; OIDC-mode clients verify
// signatures through the relying-party library before this is reached.
func ParseIDTokenClaims(rawToken string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}
	return claims, nil
}

// ExtractClaimString extracts a non-empty string claim from a claims map.
func ExtractClaimString(claims map[string]any, claimField string) (string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		return "", fmt.Errorf("claim field %s not found", claimField)
	}

	value, ok := rawValue.(string)
	if !ok {
		return "", fmt.Errorf("claim field %s is not a string", claimField)
	}
	if value == "" {
		return "", fmt.Errorf("claim field %s is empty", claimField)
	}
	return value, nil
}

// ExtractOptionalClaimString extracts a string claim, returning "" when the
// claim is absent or not a string.
func ExtractOptionalClaimString(claims map[string]any, claimField string) string {
	value, ok := claims[claimField].(string)
	if !ok {
		return ""
	}
	return value
}

// IdentityFromClaims builds a normalized Identity from provider claims.
// The subject claim is mandatory; name and email are best-effort. Some
// providers return numeric identifiers under "id" rather than a "sub" claim.
func IdentityFromClaims(provider string, claims map[string]any) (*Identity, error) {
	subject, err := ExtractClaimString(claims, "sub")
	if err != nil {
		switch id := claims["id"].(type) {
		case string:
			subject = id
		case float64:
			subject = fmt.Sprintf("%.0f", id)
		default:
			return nil, fmt.Errorf("no usable subject claim: %w", err)
		}
	}

	return &Identity{
		Subject:  subject,
		Name:     ExtractOptionalClaimString(claims, "name"),
		Email:    ExtractOptionalClaimString(claims, "email"),
		Provider: provider,
	}, nil
}
