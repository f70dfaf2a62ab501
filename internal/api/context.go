package api

import (
	"context"

	"github.com/cvaas/quest-engine/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext extracts the authenticated caller from context
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, ok := ctx.Value(principalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return p
}

// ContextWithPrincipal adds the authenticated caller to context
func ContextWithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
