package memory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/broadcast"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/internal/secret"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
)

var (
	// ErrUserExists is returned by AddUser for a registered email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidResetToken is returned for unknown, used, or expired reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Notifier delivers a password reset token to the account owner.
type Notifier func(ctx context.Context, email, token string)

// Throttle configures the Redis-backed throttles.
type Throttle struct {
	Prefix            string
	MaxSignInFailures int
	SignInWindow      time.Duration
	MaxResetRequests  int
	ResetWindow       time.Duration
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	tokens   jwt.Config
	password password.Config
	resetTTL time.Duration
	notify   Notifier
	redis    redis.UniversalClient
	throttle Throttle
}

// WithTokenConfig sets access token signing. The default is HS256 with a
// random per-process key and a one hour lifetime.
func WithTokenConfig(cfg jwt.Config) Option {
	return func(o *options) { o.tokens = cfg }
}

// WithPasswordConfig sets the Argon2id parameters.
func WithPasswordConfig(cfg password.Config) Option {
	return func(o *options) { o.password = cfg }
}

// WithResetTTL sets the lifetime of password reset tokens.
func WithResetTTL(ttl time.Duration) Option {
	return func(o *options) { o.resetTTL = ttl }
}

// WithNotifier sets the reset token delivery callback.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notify = n }
}

// WithRedisThrottle enables sign-in and reset throttling on client.
func WithRedisThrottle(client redis.UniversalClient, t Throttle) Option {
	return func(o *options) {
		o.redis = client
		o.throttle = t
	}
}

type account struct {
	user goSession.User
	hash string
}

type resetTicket struct {
	email   string
	hash    [32]byte
	expires time.Time
}

// Provider is safe for concurrent use. Event handlers run on the goroutine
// that caused the event and must not call back into mutating methods.
type Provider struct {
	tokens   *jwt.Manager
	hasher   *password.Hasher
	limiter  *rate.Limiter
	notify   Notifier
	resetTTL time.Duration
	bus      broadcast.Bus

	mu       sync.Mutex
	accounts map[string]*account
	session  *goSession.Session
	resets   map[string]resetTicket
}

// New returns an empty Provider.
func New(opts ...Option) (*Provider, error) {
	o := options{
		password: password.DefaultConfig(),
		resetTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.tokens.SigningMethod == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		o.tokens = jwt.Config{TTL: time.Hour, SigningMethod: jwt.MethodHS256, PrivateKey: key, Issuer: "gosession-memory"}
	}

	tokens, err := jwt.NewManager(o.tokens)
	if err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}
	hasher, err := password.New(o.password)
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	p := &Provider{
		tokens:   tokens,
		hasher:   hasher,
		notify:   o.notify,
		resetTTL: o.resetTTL,
		accounts: make(map[string]*account),
		resets:   make(map[string]resetTicket),
	}
	if o.redis != nil {
		p.limiter = rate.New(o.redis, rate.Config{
			Prefix:            o.throttle.Prefix,
			MaxSignInFailures: o.throttle.MaxSignInFailures,
			SignInWindow:      o.throttle.SignInWindow,
			MaxResetRequests:  o.throttle.MaxResetRequests,
			ResetWindow:       o.throttle.ResetWindow,
		})
	}
	return p, nil
}

// AddUser registers an account and returns its user record.
func (p *Provider) AddUser(email, pass string, meta goSession.UserMetadata) (goSession.User, error) {
	key := normalize(email)
	if key == "" {
		return goSession.User{}, errors.New("email required")
	}
	hash, err := p.hasher.Hash(pass)
	if err != nil {
		return goSession.User{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[key]; ok {
		return goSession.User{}, ErrUserExists
	}
	u := goSession.User{ID: uuid.NewString(), Email: key, Metadata: meta}
	p.accounts[key] = &account{user: u, hash: hash}
	return u, nil
}

// GetSession returns the held session, or nil when signed out or expired.
func (p *Provider) GetSession(ctx context.Context) (*goSession.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", goSession.ErrAbortedInit, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || p.session.Expired(time.Now()) {
		return nil, nil
	}
	return copySession(p.session), nil
}

// Subscribe registers handler and reports the held session to it as an
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

// Subscribers returns the number of live subscriptions.
func (p *Provider) Subscribers() int {
	return p.bus.Len()
}

// SignIn verifies credentials and starts a session. Rejected credentials and
// exhausted throttles return errors wrapping goSession.ErrAuthentication.
func (p *Provider) SignIn(ctx context.Context, email, pass string) (*goSession.Session, error) {
	key := normalize(email)

	if p.limiter != nil {
		if err := p.limiter.CheckSignIn(ctx, key); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return nil, fmt.Errorf("%w: too many failed attempts", goSession.ErrAuthentication)
			}
			return nil, err
		}
	}

	p.mu.Lock()
	acct, ok := p.accounts[key]
	var hash string
	if ok {
		hash = acct.hash
	}
	p.mu.Unlock()

	valid := false
	if ok {
		var err error
		if valid, err = p.hasher.Verify(pass, hash); err != nil {
			return nil, err
		}
	}
	if !valid {
		if p.limiter != nil {
			if err := p.limiter.FailSignIn(ctx, key); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: invalid email or password", goSession.ErrAuthentication)
	}
	if p.limiter != nil {
		if err := p.limiter.ResetSignIn(ctx, key); err != nil {
			return nil, err
		}
	}

	return p.startSession(acct.user, goSession.EventSignedIn)
}

// SignOut ends the held session and emits EventSignedOut.
func (p *Provider) SignOut(ctx context.Context) error {
	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
		return goSession.AuthEvent{Kind: goSession.EventSignedOut}, true
	})
	return nil
}

// Refresh rotates the held session's tokens and emits EventTokenRefreshed.
func (p *Provider) Refresh(ctx context.Context) (*goSession.Session, error) {
	p.mu.Lock()
	current := p.session
	p.mu.Unlock()

	if current == nil {
		return nil, goSession.ErrNotAuthenticated
	}
	return p.startSession(current.User, goSession.EventTokenRefreshed)
}

// RequestPasswordReset issues a reset token for email and hands it to the
// notifier. The result never reveals whether the email is registered.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	key := normalize(email)

	if p.limiter != nil {
		if err := p.limiter.AllowReset(ctx, key); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return nil
			}
			return err
		}
	}

	token, id, sec, err := secret.New()
	if err != nil {
		return err
	}

	p.mu.Lock()
	_, ok := p.accounts[key]
	if ok {
		p.resets[id.String()] = resetTicket{email: key, hash: sec.Hash(), expires: time.Now().Add(p.resetTTL)}
	}
	p.mu.Unlock()

	if ok && p.notify != nil {
		p.notify(ctx, key, token)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password, and signs the
// account in with an EventPasswordRecovery event.
func (p *Provider) ResetPassword(ctx context.Context, token, newPassword string) (*goSession.Session, error) {
	if err := p.hasher.Check(newPassword); err != nil {
		return nil, err
	}

	id, sec, err := secret.Decode(token)
	if err != nil {
		return nil, ErrInvalidResetToken
	}

	p.mu.Lock()
	ticket, ok := p.resets[id.String()]
	if ok && sec.Matches(ticket.hash) {
		delete(p.resets, id.String())
	} else {
		ok = false
	}
	p.mu.Unlock()

	if !ok || time.Now().After(ticket.expires) {
		return nil, ErrInvalidResetToken
	}

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	acct, ok := p.accounts[ticket.email]
	if ok {
		acct.hash = hash
	}
	p.mu.Unlock()
	if !ok {
		return nil, ErrInvalidResetToken
	}

	return p.startSession(acct.user, goSession.EventPasswordRecovery)
}

// UpdatePassword changes the signed-in account's password and emits
// EventUserUpdated.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var emitErr error
	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.session == nil {
			emitErr = goSession.ErrNotAuthenticated
			return goSession.AuthEvent{}, false
		}
		if acct, ok := p.accounts[p.session.User.Email]; ok {
			acct.hash = hash
		}
		return goSession.AuthEvent{Kind: goSession.EventUserUpdated, Session: copySession(p.session)}, true
	})
	return emitErr
}

// Introspect verifies an access token issued by this provider and returns the
// user it names.
func (p *Provider) Introspect(accessToken string) (goSession.User, error) {
	claims, err := p.tokens.Parse(accessToken)
	if err != nil {
		return goSession.User{}, err
	}
	return UserFromClaims(claims), nil
}

// UserFromClaims maps session token claims to a user record.
func UserFromClaims(c *jwt.SessionClaims) goSession.User {
	u := goSession.User{
		ID:    c.Subject,
		Email: c.Email,
		Metadata: goSession.UserMetadata{
			FirstName: c.UserMetadata.FirstName,
			LastName:  c.UserMetadata.LastName,
			Initials:  c.UserMetadata.Initials,
		},
	}
	if len(c.UserMetadata.Extra) > 0 {
		u.Metadata.Extra = make(map[string]string, len(c.UserMetadata.Extra))
		for k, v := range c.UserMetadata.Extra {
			u.Metadata.Extra[k] = v
		}
	}
	return u
}

func (p *Provider) startSession(u goSession.User, kind goSession.EventKind) (*goSession.Session, error) {
	refresh, id, _, err := secret.New()
	if err != nil {
		return nil, err
	}
	sid := id.String()
	access, expires, err := p.tokens.Issue(u.ID, u.Email, sid, jwt.Metadata{
		FirstName: u.Metadata.FirstName,
		LastName:  u.Metadata.LastName,
		Initials:  u.Metadata.Initials,
		Extra:     u.Metadata.Extra,
	})
	if err != nil {
		return nil, err
	}

	sess := &goSession.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expires,
		User:         u,
	}

	p.bus.Emit(func() (goSession.AuthEvent, bool) {
		p.mu.Lock()
		p.session = sess
		p.mu.Unlock()
		return goSession.AuthEvent{Kind: kind, Session: copySession(sess)}, true
	})
	return copySession(sess), nil
}

func copySession(s *goSession.Session) *goSession.Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User.Metadata.Extra != nil {
		out.User.Metadata.Extra = make(map[string]string, len(s.User.Metadata.Extra))
		for k, v := range s.User.Metadata.Extra {
			out.User.Metadata.Extra[k] = v
		}
	}
	return &out
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
