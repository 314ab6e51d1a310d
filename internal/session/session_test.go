package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderFallsBackToServiceIdentity(t *testing.T) {
	provider := NewProvider(" svc-token ")

	assert.Equal(t, "svc-token", provider.Token(context.Background()))
	assert.Equal(t, SystemName, provider.DisplayName(context.Background()))
}

func TestProviderUsesPrincipal(t *testing.T) {
	provider := NewProvider("svc-token")
	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-1", DisplayName: "Rina Manager", Token: "user-token"})

	assert.Equal(t, "user-token", provider.Token(ctx))
	assert.Equal(t, "Rina Manager", provider.DisplayName(ctx))
}

func TestProviderPrincipalWithoutName(t *testing.T) {
	provider := NewProvider("")
	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-2"})

	assert.Equal(t, "u-2", provider.DisplayName(ctx))
	assert.Equal(t, "", provider.Token(ctx))
}
