package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCSettings identifies the relying party at the identity provider.
type OIDCSettings struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Claims are the ID token fields used to create or refresh a profile.
type Claims struct {
	Issuer  string `json:"iss"`
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Provider is an OIDC identity provider with PKCE.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
	oauth2   oauth2.Config
}

// NewProvider runs OIDC discovery against settings.Issuer.
func NewProvider(ctx context.Context, settings OIDCSettings) (*Provider, error) {
	provider, err := gooidc.NewProvider(ctx, settings.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", settings.Issuer, err)
	}
	return &Provider{
		verifier: provider.Verifier(&gooidc.Config{ClientID: settings.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// AuthCodeURL is the provider URL a sign-in starts at.
func (p *Provider) AuthCodeURL(state, challenge string) string {
	return p.oauth2.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Identify exchanges an authorization code and returns the verified claims.
func (p *Provider) Identify(ctx context.Context, code, verifier string) (Claims, error) {
	token, err := p.oauth2.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return Claims{}, fmt.Errorf("token exchange: %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok {
		return Claims{}, errors.New("no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("verify id_token: %w", err)
	}
	var c Claims
	if err := idToken.Claims(&c); err != nil {
		return Claims{}, fmt.Errorf("decode claims: %w", err)
	}
	c.Issuer = idToken.Issuer
	return c, nil
}

// GenerateState returns a random OAuth state value.
func GenerateState() (string, error) {
	return randomString(32)
}

// GeneratePKCE returns a PKCE verifier and its S256 challenge.
func GeneratePKCE() (verifier, challenge string, err error) {
	verifier, err = randomString(64)
	if err != nil {
		return "", "", err
	}
	return verifier, Challenge(verifier), nil
}

// Challenge is the S256 code challenge for verifier.
func Challenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
