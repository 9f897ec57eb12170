package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/skm-mango/storefront/internal/platform/config"
)

// FirebaseVerifier verifies Firebase ID tokens through the Admin SDK.
type FirebaseVerifier struct {
	client idTokenVerifier
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// NewFirebaseVerifier initialises the Admin SDK for cfg.ProjectID.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify implements TokenVerifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if v == nil || v.client == nil {
		return Claims{}, errors.New("firebase verifier not initialised")
	}
	decoded, err := v.client.VerifyIDToken(ctx, token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err):
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return Claims{Subject: decoded.UID, Values: decoded.Claims}, nil
}
