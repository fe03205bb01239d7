// Package oauth is a goSession.IdentityProvider backed by an OAuth2
// authorization server. Sign-in uses the resource owner password grant and
// the user is read from the ID token, verified when the provider was built
// through OIDC discovery.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/broadcast"
	"github.com/MrEthical07/goSession/jwt"
)

// Config describes the authorization server.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// RecoverURL receives POST {"email": ...} for password reset requests.
	// Without it RequestPasswordReset returns errors.ErrUnsupported.
	RecoverURL string
	// UserURL receives PUT {"password": ...} with the access token as bearer.
	// Without it UpdatePassword returns errors.ErrUnsupported.
	UserURL string

	HTTPClient *http.Client
}

// Provider holds one client-side session. It is safe for concurrent use.
type Provider struct {
	config Config
	oauth  *oauth2.Config
	client *http.Client
	verify func(ctx context.Context, raw string) (goSession.User, error)
	bus    broadcast.Bus

	mu      sync.Mutex
	session *goSession.Session
}

// New returns a Provider for a known token endpoint. ID tokens are decoded
// without signature verification; use [Discover] when the issuer publishes
// OIDC metadata.
func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("oauth: client id required")
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("oauth: token url required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess}
	}

	return &Provider{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       cfg.Scopes,
		},
		client: cfg.HTTPClient,
		verify: unverifiedUser,
	}, nil
}

// Discover resolves the token endpoint from the issuer's OIDC metadata and
// verifies ID tokens against its published keys.
func Discover(ctx context.Context, issuer string, cfg Config) (*Provider, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess}
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(
		ctx,
		issuer,
		cfg.ClientID,
		cfg.ClientSecret,
		"",
		cfg.Scopes,
		rp.WithHTTPClient(cfg.HTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider at %s: %w", issuer, err)
	}

	cfg.TokenURL = relyingParty.OAuthConfig().Endpoint.TokenURL
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}

	verifier := relyingParty.IDTokenVerifier()
	p.verify = func(ctx context.Context, raw string) (goSession.User, error) {
		claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, raw, verifier)
		if err != nil {
			return goSession.User{}, fmt.Errorf("verify id token: %w", err)
		}
		return goSession.User{
			ID:    claims.Subject,
			Email: claims.Email,
			Metadata: goSession.UserMetadata{
				FirstName: claims.GivenName,
				LastName:  claims.FamilyName,
			},
		}, nil
	}
	return p, nil
}

// GetSession returns the held session. An expired session is refreshed when
// a refresh token is held and dropped otherwise.
func (p *Provider) GetSession(ctx context.Context) (*goSession.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", goSession.ErrAbortedInit, err)
	}

	p.mu.Lock()
	current := p.session
	p.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if !current.Expired(time.Now()) {
		return copySession(current), nil
	}
	if current.RefreshToken == "" {
		p.drop()
		return nil, nil
	}

	sess, err := p.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", goSession.ErrAbortedInit, err)
		}
		p.drop()
		return nil, nil
	}
	return sess, nil
}

// Subscribe registers handler and reports the held session as an
// EventBootstrap event before returning.
func (p *Provider) Subscribe(handler func(goSession.AuthEvent)) (goSession.Subscription, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	return p.bus.Subscribe(handler, func() *goSession.Session {
		p.mu.Lock()
		defer p.mu.Unlock()
		return copySession(p.session)
	}), nil
}

// SignIn exchanges credentials for tokens with the password grant. A 400 or
// 401 from the token endpoint returns an error wrapping
// goSession.ErrAuthentication.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*goSession.Session, error) {
	tok, err := p.oauth.PasswordCredentialsToken(p.clientContext(ctx), email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", goSession.ErrAuthentication, re.ErrorCode)
		}
		return nil, fmt.Errorf("password grant: %w", err)
	}

	sess, err := p.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, err
	}
	p.adopt(goSession.EventSignedIn, sess)
	return copySession(sess), nil
}

// Refresh redeems the held refresh token and emits EventTokenRefreshed.
func (p *Provider) Refresh(ctx context.Context) (*goSession.Session, error) {
	p.mu.Lock()
	current := p.session
	p.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, goSession.ErrNotAuthenticated
	}

	src := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	sess, err := p.sessionFromToken(ctx, tok, &current.User)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = current.RefreshToken
	}
	p.adopt(goSession.EventTokenRefreshed, sess)
	return copySession(sess), nil
}

// SignOut forgets the held session and emits EventSignedOut. Tokens are not
// revoked at the server.
func (p *Provider) SignOut(ctx context.Context) error {
	p.drop()
	return nil
}

// RequestPasswordReset posts the email to Config.RecoverURL.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	if p.config.RecoverURL == "" {
		return errors.ErrUnsupported
	}
	return p.sendJSON(ctx, http.MethodPost, p.config.RecoverURL, "", map[string]string{"email": email})
}

// UpdatePassword puts the new password to Config.UserURL and emits
// EventUserUpdated.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	if p.config.UserURL == "" {
		return errors.ErrUnsupported
	}

	p.mu.Lock()
	current := copySession(p.session)
	p.mu.Unlock()
	if current == nil {
		return goSession.ErrNotAuthenticated
	}

	if err := p.sendJSON(ctx, http.MethodPut, p.config.UserURL, current.AccessToken, map[string]string{"password": newPassword}); err != nil {
		return err
	}
	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.session == nil {
			return goSession.AuthEvent{}, false
		}
		return goSession.AuthEvent{Kind: goSession.EventUserUpdated, Session: copySession(p.session)}, true
	})
	return nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

func (p *Provider) adopt(kind goSession.EventKind, sess *goSession.Session) {
	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		p.session = sess
		p.mu.Unlock()
		return goSession.AuthEvent{Kind: kind, Session: copySession(sess)}, true
	})
}

func (p *Provider) drop() {
	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
		return goSession.AuthEvent{Kind: goSession.EventSignedOut}, true
	})
}

// sessionFromToken builds a session from a token response. The user comes
// from the id_token, else from a JWT access token, else from fallback.
func (p *Provider) sessionFromToken(ctx context.Context, tok *oauth2.Token, fallback *goSession.User) (*goSession.Session, error) {
	sess := &goSession.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
	}

	raw, _ := tok.Extra("id_token").(string)
	switch {
	case raw != "":
		u, err := p.verify(ctx, raw)
		if err != nil {
			return nil, err
		}
		sess.User = u
	case strings.Count(tok.AccessToken, ".") == 2:
		u, err := unverifiedUser(ctx, tok.AccessToken)
		if err != nil {
			return nil, err
		}
		sess.User = u
	case fallback != nil:
		sess.User = *fallback
	default:
		return nil, errors.New("oauth: token response carries no identity")
	}
	return sess, nil
}

func unverifiedUser(_ context.Context, raw string) (goSession.User, error) {
	claims, err := jwt.ParseUnverified(raw)
	if err != nil {
		return goSession.User{}, err
	}
	first := claims.UserMetadata.FirstName
	if first == "" {
		first = claims.GivenName
	}
	last := claims.UserMetadata.LastName
	if last == "" {
		last = claims.FamilyName
	}
	return goSession.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Metadata: goSession.UserMetadata{
			FirstName: first,
			LastName:  last,
			Initials:  claims.UserMetadata.Initials,
			Extra:     claims.UserMetadata.Extra,
		},
	}, nil
}

func (p *Provider) sendJSON(ctx context.Context, method, url, bearer string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, url, resp.StatusCode)
	}
	return nil
}

func copySession(s *goSession.Session) *goSession.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
