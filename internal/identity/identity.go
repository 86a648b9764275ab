// Package identity acquires the signed-in user's identity once at startup.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/vincentbai/visittrace-agent/internal/config"
	"github.com/vincentbai/visittrace-agent/internal/models"
)

// ErrIdentityUnavailable means no usable user id and email could be obtained.
var ErrIdentityUnavailable = errors.New("identity unavailable")

type Provider interface {
	Identity(ctx context.Context) (models.Identity, error)
}

// Static returns a fixed identity taken from configuration.
type Static struct {
	UserID    string
	UserEmail string
}

func (s Static) Identity(_ context.Context) (models.Identity, error) {
	return validate(models.Identity{UserID: s.UserID, UserEmail: s.UserEmail})
}

// OIDC resolves the identity from an OpenID Connect userinfo endpoint.
type OIDC struct {
	issuer      string
	tokenSource oauth2.TokenSource
}

func NewOIDC(issuer, accessToken string) *OIDC {
	return &OIDC{
		issuer:      issuer,
		tokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	}
}

func (o *OIDC) Identity(ctx context.Context) (models.Identity, error) {
	if o.issuer == "" {
		return models.Identity{}, fmt.Errorf("%w: oidc issuer not configured", ErrIdentityUnavailable)
	}

	provider, err := oidc.NewProvider(ctx, o.issuer)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: discover oidc provider: %v", ErrIdentityUnavailable, err)
	}

	userInfo, err := provider.UserInfo(ctx, o.tokenSource)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: fetch userinfo: %v", ErrIdentityUnavailable, err)
	}

	return validate(models.Identity{UserID: userInfo.Subject, UserEmail: userInfo.Email})
}

// FromConfig builds the provider selected by identity.provider.
func FromConfig(cfg config.IdentitySettings) (Provider, error) {
	switch cfg.Provider {
	case "static":
		return Static{UserID: cfg.UserID, UserEmail: cfg.UserEmail}, nil
	case "oidc":
		return NewOIDC(cfg.OIDC.Issuer, cfg.OIDC.AccessToken), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}

func validate(id models.Identity) (models.Identity, error) {
	if id.UserID == "" || id.UserEmail == "" {
		return models.Identity{}, fmt.Errorf("%w: missing user id or email", ErrIdentityUnavailable)
	}
	return id, nil
}
