// Package session provides helpers for managing user sessions stored entirely
// in encrypted cookies.
//
// At a high level, Manager manages the creation of time-bounded Session
// instances. The Session is imbued with an arbitrary Data payload, which can
// be used to store user session details (e.g. identity). The whole Session is
// sealed into an encrypted, signed token (see package ewt) and set as the
// session cookie, so no server-side storage is needed for live sessions.
//
// Sessions also contain an assocated CSRF token, which can be used in CSRF
// protections (e.g., hidden form fields).
//
// Since a cookie cannot be recalled once issued, Clear records the cleared
// session ID in a RevocationStore until the session would have expired anyway.
//
// The general principle is that HTTP handlers that must be Session-aware will
// use the Manage middleware. The latter ensures that a Session always exists,
// and defaults to a pre-session - i.e., one with nil associated Data. This
// ensures that CSRF protection is always possible.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swfrench/ewt"
	"github.com/swfrench/ewt/internal/retry"
	"github.com/swfrench/ewt/store"
	"golang.org/x/exp/slog"
)

const (
	defaultSessionTTL        = 30 * time.Minute
	sessionCookieGracePeriod = 10 * time.Minute
	defaultIDLen             = 16 // bytes
	defaultSessionCookieName = "session"
	defaultMaxCookieSize     = 4096 // bytes
	revokeAttempts           = 3
)

// ErrCookieTooLarge indicates that the encoded session does not fit in a
// cookie of Options.MaxCookieSize bytes.
var ErrCookieTooLarge = errors.New("session cookie too large")

// contextKey is the type used to represent keys identifying values stored in
// the request Context.
type contextKey string

const contextKeySession = contextKey("session")

// Session represents a user session.
type Session[D any] struct {
	// ID is a random unique identifier.
	ID string `json:"id"`
	// Data is an arbitrary data payload. Type D must marshal to / from JSON.
	Data *D `json:"data"`
	// Expiration is the time after which this session is no longer valid.
	Expiration time.Time `json:"expiration"`
	// CSRFToken is a random identifier bound to this session, suitable for,
	// e.g., embedding in a hidden form field.
	CSRFToken string `json:"csrf_token"`
}

// Options represents tunable knobs that control the behavior of Manager.
type Options[D any] struct {
	// TTL is the duration that any given session is valid. Note that there is
	// no facility for session extension at this time.
	// Default if unspecified: 30m
	TTL time.Duration
	// IDLen is the length of random portion of user-facing identifiers (i.e.,
	// session IDs and CSRF tokens), prior to base64url encoding.
	// Default if unspecified: 16 bytes
	IDLen int
	// CookieName is the name of the session cookie set by Manager. For
	// example, together with a suitable definition of CreateCookie (see
	// below), this can be used to configure a secure cookie name prefix (e.g.,
	// "__Host-").
	// Default if unspecified: "session"
	CookieName string
	// CreateCookie is a user-supplied factory for creating session cookies
	// with the provided name, value, and expiration. This is provided as a
	// convenience for granular control of cookie attributes, such as Path.
	// Default if unspecified: CreateStrictCookie
	CreateCookie func(name, value string, expires time.Time) *http.Cookie
	// OnCreate, if set, is invoked with each newly created session, after the
	// session cookie has been set.
	OnCreate func(w http.ResponseWriter, s *Session[D])
	// MaxCookieSize bounds the length of the encoded session cookie value.
	// Default if unspecified: 4096 bytes
	MaxCookieSize int
	// Registerer, if set, is used to register session metrics.
	Registerer prometheus.Registerer
}

// CreateStrictCookie returns an http.Cookie with strict defaults, with the
// provided name, value, and expiration. The resulting cookie is marked Secure,
// HttpOnly, and SameSite Strict, with no Domain or Path attribute.
// Consider using this as a base for your own implementation of CreateCookie.
func CreateStrictCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// Manager manages user sessions (i.e., Session instances).
type Manager[D any] struct {
	// Clock can be used to override measurement of time in tests.
	Clock       func() time.Time
	codec       *ewt.Codec
	revocations store.RevocationStore
	opts        Options[D]
	retry       retry.Policy
	rejections  *prometheus.CounterVec
}

// NewManager returns a new Manager sealing sessions with the provided codec,
// recording cleared sessions to the provided RevocationStore, and respecting
// the provided options (which may be nil).
func NewManager[D any](codec *ewt.Codec, revocations store.RevocationStore, opts *Options[D]) *Manager[D] {
	var o Options[D]
	if opts != nil {
		o = *opts
	}
	if o.TTL == time.Duration(0) {
		o.TTL = defaultSessionTTL
	}
	if o.IDLen == 0 {
		o.IDLen = defaultIDLen
	}
	if o.CookieName == "" {
		o.CookieName = defaultSessionCookieName
	}
	if o.CreateCookie == nil {
		o.CreateCookie = CreateStrictCookie
	}
	if o.MaxCookieSize == 0 {
		o.MaxCookieSize = defaultMaxCookieSize
	}
	return &Manager[D]{
		Clock:       func() time.Time { return time.Now() },
		codec:       codec,
		revocations: revocations,
		opts:        o,
		retry: retry.Backoff{
			Base:   10 * time.Millisecond,
			Growth: 2.0,
			Jitter: 0.2,
			OnRetry: func(attempt int, err error) {
				slog.Warn("Failed to revoke session, retrying", "attempt", attempt, "error", err)
			},
		},
		rejections: newRejectionCounter(o.Registerer),
	}
}

// GetSession returns the Session object instance from the provided Context -
// i.e., previously stored there via the Manage middleware.
func (sm *Manager[D]) GetSession(ctx context.Context) *Session[D] {
	s := ctx.Value(contextKeySession)
	if s == nil {
		return nil
	}
	return s.(*Session[D])
}

func (sm *Manager[D]) createID() (string, error) {
	data := make([]byte, sm.opts.IDLen)
	if _, err := rand.Read(data); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func (sm *Manager[D]) seal(s *Session[D]) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	tok, err := sm.codec.Encode(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	if len(tok) > sm.opts.MaxCookieSize {
		return "", fmt.Errorf("encoded session is %d bytes, limit is %d: %w", len(tok), sm.opts.MaxCookieSize, ErrCookieTooLarge)
	}
	return tok, nil
}

var (
	errExpiredSession = errors.New("expired session")
	errRevokedSession = errors.New("revoked session")
	errInvalidSession = errors.New("invalid session")
)

// open decodes and validates a session cookie value.
func (sm *Manager[D]) open(ctx context.Context, value string) (*Session[D], error) {
	b, err := sm.codec.Decode(value)
	if err != nil {
		return nil, err
	}
	s := new(Session[D])
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session (error: %v): %w", err, errInvalidSession)
	}
	if s.ID == "" || s.CSRFToken == "" {
		return nil, fmt.Errorf("session is missing identifiers: %w", errInvalidSession)
	}
	if s.Expiration.Before(sm.Clock()) {
		return nil, errExpiredSession
	}
	revoked, err := sm.revocations.IsRevoked(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, errRevokedSession
	}
	return s, nil
}

// Create creates a new Session with the provided Data payload, setting it as
// the session cookie.
func (sm *Manager[D]) Create(ctx context.Context, w http.ResponseWriter, data *D) (*Session[D], error) {
	id, err := sm.createID()
	if err != nil {
		return nil, err
	}
	csrf, err := sm.createID()
	if err != nil {
		return nil, err
	}
	s := &Session[D]{
		ID:         id,
		Data:       data,
		Expiration: sm.Clock().Add(sm.opts.TTL),
		CSRFToken:  csrf,
	}
	value, err := sm.seal(s)
	if err != nil {
		return nil, err
	}
	sm.setSessionCookie(w, value, s.Expiration)
	if sm.opts.OnCreate != nil {
		sm.opts.OnCreate(w, s)
	}
	return s, nil
}

// Clear revokes the provided session until its expiration, then creates a new
// pre-session (i.e., a Session with no Data payload), which is set in the
// session cookie and returned. If the session cannot be revoked, Clear returns
// an error and leaves the session cookie untouched.
func (sm *Manager[D]) Clear(ctx context.Context, w http.ResponseWriter, s *Session[D]) (*Session[D], error) {
	if s == nil {
		return nil, errors.New("no session to clear")
	}
	if ttl := s.Expiration.Sub(sm.Clock()); ttl > 0 {
		if err := sm.revoke(ctx, s.ID, ttl); err != nil {
			return nil, fmt.Errorf("failed to revoke session: %w", err)
		}
	}
	ps, err := sm.Create(ctx, w, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new pre-session: %w", err)
	}
	return ps, nil
}

func (sm *Manager[D]) revoke(ctx context.Context, id string, ttl time.Duration) error {
	return sm.retry.Do(ctx, func(ctx context.Context) error {
		err := sm.revocations.Revoke(ctx, id, ttl)
		if errors.Is(err, store.ErrInvalidID) || errors.Is(err, store.ErrInvalidTTL) {
			return retry.Permanent(err)
		}
		return err
	}, revokeAttempts)
}

func (sm *Manager[D]) setSessionCookie(w http.ResponseWriter, value string, expiration time.Time) {
	expires := expiration.Add(sessionCookieGracePeriod)
	http.SetCookie(w, sm.opts.CreateCookie(sm.opts.CookieName, value, expires))
}

// VerifySessionCSRFToken verifies that the provided CSRF token matches the
// expected value for the provided Session. The comparison runs in constant
// time.
func (sm *Manager[D]) VerifySessionCSRFToken(token string, s *Session[D]) error {
	if s == nil || s.CSRFToken == "" {
		return errors.New("no session-bound CSRF token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.CSRFToken)) != 1 {
		return errors.New("CSRF token does not match session-bound token")
	}
	return nil
}

func (sm *Manager[D]) wrapHandler(w http.ResponseWriter, r *http.Request, next http.Handler) {
	var s *Session[D]
	c, err := r.Cookie(sm.opts.CookieName)
	if err != nil {
		// Regardless of the error reason, we'll create a pre-session below.
		if !errors.Is(err, http.ErrNoCookie) {
			slog.Error("Failed to extract session cookie", "error", err)
		}
	} else if cs, err := sm.open(r.Context(), c.Value); err != nil {
		reason := rejectionReason(err)
		sm.rejections.WithLabelValues(reason).Inc()
		slog.Debug("Rejected session cookie", "reason", reason, "error", err)
	} else {
		s = cs
	}
	if s == nil {
		ps, err := sm.Create(r.Context(), w, nil)
		if err != nil {
			slog.Error("Failed to create session", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s = ps
	}
	ctx := context.WithValue(r.Context(), contextKeySession, s)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// Manage is a chi-compatible middleware that decodes and validates the
// session cookie, and stores the resulting session to the request Context
// (which can be retrieved via GetSession).
// If no valid session cookie is present, a pre-session (i.e., one with nil
// Data payload) will be created. In other words, Manage ensures a session
// always exists (with an associated CSRF token).
func (sm *Manager[D]) Manage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.wrapHandler(w, r, next)
	})
}
