package identity

import (
	"context"
	"errors"
	"strings"

	"cattle-breeding-timeline/internal/ports/auth"
)

var ErrTokenEmpty = errors.New("token is empty")

// Verifier implementa auth.AuthVerifier sobre el cliente de identidad.
// Se instancia desde main cuando hay IDENTITY_BASE_URL configurada.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}
	return v.client.VerifyToken(ctx, token)
}
