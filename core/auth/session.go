package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core"
)

// LoginRoute is where an expired session gets redirected, exactly once.
const LoginRoute = "/login"

var ErrNotReady = errors.New("auth session not initialized")

// Claims are the authorization claims carried in the platform's JWT.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"`
	IsTutor   bool     `json:"is_tutor,omitempty"`
	IsAdmin   bool     `json:"is_admin,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// IdentityClient is the external identity provider's contract.
type IdentityClient interface {
	Login(ctx context.Context, username, password string) (token string, err error)
	Logout(ctx context.Context) error
}

// RedirectFunc sends the user somewhere else (the SPA router stand-in).
type RedirectFunc func(target string)

// Session wraps the identity provider as a single app-wide instance,
// created once at startup and passed down explicitly. Consumers check
// Ready before trusting its answers; the session is never
// re-initialized once the app is running.
//
// On a classified 401 the session performs exactly one warning
// notification and one redirect per expiry episode, no matter how many
// rejected calls report it; the guard resets on the next login.
type Session struct {
	client   IdentityClient
	log      core.Logger
	notify   core.Notifier
	redirect RedirectFunc

	mu             sync.Mutex
	ready          bool
	token          string
	identity       *Identity
	expiry         time.Time
	expiredHandled bool
}

func NewSession(client IdentityClient, log core.Logger, notify core.Notifier, redirect RedirectFunc) *Session {
	return &Session{
		client:   client,
		log:      log,
		notify:   notify,
		redirect: redirect,
	}
}

// Init marks the session usable. Calling it again is a no-op.
func (s *Session) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	s.ready = true
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Login authenticates against the identity provider and adopts the
// returned token's claims.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return ErrNotReady
	}

	username = core.CleanString(username, true /* lower */)
	token, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.log.Warn("login failed", err, map[string]interface{}{"username": username})
		return err
	}
	return s.Restore(token)
}

// Restore adopts an existing token (e.g. one carried over via config);
// it resets the expiry guard so a later 401 gets handled again.
func (s *Session) Restore(token string) error {
	claims, expiry, err := parseClaims(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiry = expiry
	s.identity = &Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}
	s.expiredHandled = false
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.expiry = time.Time{}
	s.mu.Unlock()
	return err
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.token == "" {
		return false
	}
	return s.expiry.IsZero() || time.Now().Before(s.expiry)
}

func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	ident := *s.identity
	return &ident
}

func (s *Session) Roles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	return append([]string(nil), s.identity.Roles...)
}

// Token returns the raw bearer token for the API gateway.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// HandleAuthExpired reacts to a classified 401: the session is dropped,
// the user warned once, redirected once. Callers (the gateway) never
// retry the failed request themselves.
func (s *Session) HandleAuthExpired() {
	s.mu.Lock()
	if s.expiredHandled {
		s.mu.Unlock()
		return
	}
	s.expiredHandled = true
	s.token = ""
	s.identity = nil
	s.expiry = time.Time{}
	redirect := s.redirect
	s.mu.Unlock()

	s.notify.Warn(core.MsgSessionExpired)
	if redirect != nil {
		redirect(LoginRoute)
	}
}

// parseClaims decodes the token without verifying the signature; the
// client holds no signing key and only needs the claims for display
// and role gating. The server re-checks every request anyway.
func parseClaims(token string) (*Claims, time.Time, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "parsing token claims")
	}
	var expiry time.Time
	if claims.ExpiresAt > 0 {
		expiry = time.Unix(claims.ExpiresAt, 0)
	}
	return claims, expiry, nil
}
