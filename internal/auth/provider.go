package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	discoveryTTL    = time.Hour
	providerTimeout = 10 * time.Second
	defaultTokenTTL = time.Hour
)

var (
	// ErrExchange is returned when the provider rejects an authorization code.
	// Callers must redirect to the login entry point, never retry.
	ErrExchange = errors.New("authorization code exchange failed")

	// ErrRefresh is returned when a refresh token is invalid or revoked.
	// Callers must treat this as "no longer authenticated".
	ErrRefresh = errors.New("token refresh failed")

	// ErrUnknownHost is returned when a request's hostname has no registered
	// callback and the dev fallback is not applicable.
	ErrUnknownHost = errors.New("unrecognized callback hostname")
)

// ProviderConfig holds the static identity-provider settings.
type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string

	// Domains are the hostnames with registered callbacks.
	Domains []string

	// LocalDevHost is substituted for unknown hostnames outside production.
	LocalDevHost string
	Production   bool

	// PostLogoutURL is the logout redirect when the issuer advertises no
	// end-session endpoint (or discovery is unavailable at logout time).
	PostLogoutURL string
}

// Provider performs the OIDC round-trips: issuer discovery, the
// authorization-code exchange and silent token refresh. Issuer metadata is
// memoized for discoveryTTL and shared read-only across requests.
type Provider struct {
	cfg     ProviderConfig
	domains map[string]struct{}

	mu            sync.RWMutex
	provider      *oidc.Provider
	verifier      *oidc.IDTokenVerifier
	endSessionURL string
	fetchedAt     time.Time
}

// NewProvider creates a Provider. No network calls happen until Discover.
func NewProvider(cfg ProviderConfig) *Provider {
	domains := make(map[string]struct{}, len(cfg.Domains))
	for _, d := range cfg.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains[d] = struct{}{}
		}
	}
	return &Provider{cfg: cfg, domains: domains}
}

// Discover fetches and caches the issuer metadata. It is a no-op while the
// cached copy is fresh; concurrent re-discovery after the TTL may race to
// redundant fetches, which is harmless.
func (p *Provider) Discover(ctx context.Context) error {
	p.mu.RLock()
	fresh := p.provider != nil && time.Since(p.fetchedAt) < discoveryTTL
	p.mu.RUnlock()
	if fresh {
		return nil
	}

	// The oidc package reuses this context's HTTP client for later JWKS
	// fetches, so bound the round-trips with a client timeout instead of a
	// context deadline.
	client := &http.Client{Timeout: providerTimeout}
	dctx := oidc.ClientContext(context.WithoutCancel(ctx), client)

	provider, err := oidc.NewProvider(dctx, p.cfg.IssuerURL)
	if err != nil {
		return fmt.Errorf("oidc discovery %s: %w", p.cfg.IssuerURL, err)
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	_ = provider.Claims(&extra)

	p.mu.Lock()
	p.provider = provider
	p.verifier = provider.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
	p.endSessionURL = extra.EndSessionEndpoint
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return nil
}

// AuthCodeURL builds the provider's authorization URL for the given inbound
// hostname. An optional prompt value is forwarded to the provider.
func (p *Provider) AuthCodeURL(ctx context.Context, host, state, prompt string) (string, error) {
	cfg, err := p.oauthConfig(ctx, host)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", prompt))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// Exchange swaps the authorization code for tokens, verifies the ID token
// and returns the resulting session state. One-shot: a failure is terminal
// for the login attempt.
func (p *Provider) Exchange(ctx context.Context, host, code string) (Session, error) {
	cfg, err := p.oauthConfig(ctx, host)
	if err != nil {
		return Session{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	sess, err := p.sessionFromToken(ctx, token, true)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if sess.Claims.Sub == "" {
		return Session{}, fmt.Errorf("%w: no verified subject", ErrExchange)
	}
	return sess, nil
}

// Refresh exchanges a refresh token for fresh tokens. When the provider
// returns a new ID token its claims are included; otherwise Claims is zero
// and the caller keeps the previous claims.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	cfg, err := p.oauthConfig(ctx, p.primaryHost())
	if err != nil {
		return Session{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrRefresh, err)
	}

	sess, err := p.sessionFromToken(ctx, token, false)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	return sess, nil
}

// LogoutURL builds the provider end-session redirect for the given hostname,
// or the configured local fallback when the issuer has none.
func (p *Provider) LogoutURL(ctx context.Context, host string) string {
	if err := p.Discover(ctx); err != nil {
		return p.cfg.PostLogoutURL
	}

	p.mu.RLock()
	endSession := p.endSessionURL
	p.mu.RUnlock()
	if endSession == "" {
		return p.cfg.PostLogoutURL
	}

	resolved, err := p.resolveHost(host)
	if err != nil {
		return p.cfg.PostLogoutURL
	}

	u, err := url.Parse(endSession)
	if err != nil {
		return p.cfg.PostLogoutURL
	}
	q := u.Query()
	q.Set("client_id", p.cfg.ClientID)
	q.Set("post_logout_redirect_uri", hostScheme(resolved)+"://"+resolved+"/")
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Provider) sessionFromToken(ctx context.Context, token *oauth2.Token, requireIDToken bool) (Session, error) {
	sess := Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if ok {
		p.mu.RLock()
		verifier := p.verifier
		p.mu.RUnlock()

		idToken, err := verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return Session{}, fmt.Errorf("verify id_token: %w", err)
		}

		var raw rawClaims
		if err := idToken.Claims(&raw); err != nil {
			return Session{}, fmt.Errorf("parse claims: %w", err)
		}
		sess.Claims = raw.normalize()
	} else if requireIDToken {
		return Session{}, fmt.Errorf("no id_token in response")
	}

	switch {
	case !token.Expiry.IsZero():
		sess.ExpiresAt = token.Expiry.Unix()
	case sess.Claims.Exp != 0:
		sess.ExpiresAt = sess.Claims.Exp
	default:
		sess.ExpiresAt = time.Now().Add(defaultTokenTTL).Unix()
	}

	return sess, nil
}

func (p *Provider) oauthConfig(ctx context.Context, host string) (*oauth2.Config, error) {
	if err := p.Discover(ctx); err != nil {
		return nil, err
	}

	resolved, err := p.resolveHost(host)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	endpoint := p.provider.Endpoint()
	p.mu.RUnlock()

	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  hostScheme(resolved) + "://" + resolved + "/api/callback",
		Endpoint:     endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile", oidc.ScopeOfflineAccess},
	}, nil
}

// resolveHost maps an inbound hostname to a registered callback hostname.
// Unknown hostnames fall back to the development host, but never in
// production.
func (p *Provider) resolveHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if _, ok := p.domains[host]; ok {
		return host, nil
	}
	if !p.cfg.Production && p.cfg.LocalDevHost != "" {
		return p.cfg.LocalDevHost, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHost, host)
}

func (p *Provider) primaryHost() string {
	if len(p.cfg.Domains) > 0 {
		return p.cfg.Domains[0]
	}
	return p.cfg.LocalDevHost
}

func hostScheme(host string) string {
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	if name == "localhost" || name == "127.0.0.1" {
		return "http"
	}
	return "https"
}
