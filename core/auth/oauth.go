package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmoiron/sqlx"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/core/claims"
	"github.com/tuanngo-dev/e-education/core/user"
	"github.com/tuanngo-dev/e-education/random"
	"github.com/tuanngo-dev/e-education/validate"
	"golang.org/x/oauth2"
)

const stateKey = "oauth_state"

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	Verifier *oidc.IDTokenVerifier
	Config   oauth2.Config
}

// MakeProviders discovers each OIDC issuer and builds the oauth2 exchange
// configuration for it.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider[%s]: %w", cfg.Name, err)
		}

		providers[cfg.Name] = Provider{
			Verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
		}
	}
	return providers, nil
}

func HandleOauthLogin(session *scs.SessionManager, providers map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := providers[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider[%s] is not configured", name))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		session.Put(ctx, stateKey, state)

		return web.Redirect(ctx, w, r, p.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, providers map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := providers[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider[%s] is not configured", name))
		}

		state := session.PopString(ctx, stateKey)
		if state == "" || state != web.QueryParam(r, "state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := p.Config.Exchange(ctx, web.QueryParam(r, "code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("exchanging oauth code: %w", err))
		}

		rawID, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("oauth token has no id_token"))
		}

		idTok, err := p.Verifier.Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var profile struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := idTok.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}

		usr, err := fetchOrCreate(ctx, db, profile.Name, profile.Email)
		if err != nil {
			return fmt.Errorf("resolving oauth user[%s]: %w", profile.Email, err)
		}

		if err := login(ctx, session, usr); err != nil {
			return fmt.Errorf("opening session for user[%s]: %w", usr.ID, err)
		}

		return web.Redirect(ctx, w, r, redirectURL, http.StatusTemporaryRedirect)
	}
}

func fetchOrCreate(ctx context.Context, db *sqlx.DB, name string, email string) (user.User, error) {
	usr, err := user.FetchByEmail(ctx, db, email)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fmt.Errorf("fetching user by email: %w", err)
	}

	now := time.Now().UTC()
	usr = user.User{
		ID:        validate.GenerateID(),
		Name:      name,
		Email:     email,
		Role:      claims.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Create(ctx, db, usr); err != nil {
		return user.User{}, fmt.Errorf("creating user: %w", err)
	}
	return usr, nil
}
