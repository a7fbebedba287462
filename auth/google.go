package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// FederatedVerifier turns a provider-issued token into an Identity.
type FederatedVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// GoogleVerifier validates Google ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if g.clientID == "" {
		return nil, errors.New("google sign-in is not configured")
	}
	payload, err := idtoken.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, newError(CodeInvalidCredentials, err)
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, newError(CodeInvalidEmail, errors.New("token carries no email"))
	}
	return &Identity{
		UserID:      "google:" + payload.Subject,
		Email:       NormalizeEmail(email),
		DisplayName: name,
		Provider:    ProviderGoogle,
	}, nil
}
