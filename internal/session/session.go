// Package session carries the authenticated dashboard user through request contexts.
package session

import (
	"context"
	"strings"
)

// SystemName is the display name used when no user is attached to the context.
const SystemName = "System"

// Principal is the authenticated caller.
type Principal struct {
	UserID      string
	DisplayName string
	Role        string
	Token       string
}

type principalKey struct{}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached to ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Provider supplies the bearer token forwarded to the authority and the "created by" name.
type Provider struct {
	serviceToken string
}

// NewProvider builds a provider falling back to serviceToken for background work.
func NewProvider(serviceToken string) *Provider {
	return &Provider{serviceToken: strings.TrimSpace(serviceToken)}
}

// Token returns the caller's token, else the service token.
func (p *Provider) Token(ctx context.Context) string {
	if principal, ok := FromContext(ctx); ok && principal.Token != "" {
		return principal.Token
	}
	return p.serviceToken
}

// DisplayName returns the caller's display name, else SystemName.
func (p *Provider) DisplayName(ctx context.Context) string {
	if principal, ok := FromContext(ctx); ok {
		if name := strings.TrimSpace(principal.DisplayName); name != "" {
			return name
		}
		if principal.UserID != "" {
			return principal.UserID
		}
	}
	return SystemName
}
