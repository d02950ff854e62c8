package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/travel-aggregator/internal/clock"
)

const (
	defaultIssueTimeout = 10 * time.Second
	flightKey           = "token"
)

// IssuedToken is the issuer's raw answer.
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenIssuer performs the OAuth2 client-credentials exchange.
type TokenIssuer interface {
	IssueToken(ctx context.Context) (IssuedToken, error)
}

type issuanceRecorder interface {
	IncTokenIssuance(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) IncTokenIssuance(bool) {}

// Authenticator caches one bearer token and refreshes it shortly before it expires.
// At most one issuance is in flight at any time; concurrent callers share its outcome.
type Authenticator struct {
	issuer       TokenIssuer
	clock        clock.Clock
	buffer       time.Duration
	issueTimeout time.Duration
	log          *slog.Logger
	metrics      issuanceRecorder

	mu      sync.RWMutex
	current *Token

	flight singleflight.Group
}

// Option configures an Authenticator.
type Option func(*Authenticator)

func WithClock(c clock.Clock) Option { return func(a *Authenticator) { a.clock = c } }

func WithBuffer(d time.Duration) Option { return func(a *Authenticator) { a.buffer = d } }

// WithIssueTimeout bounds each call to the issuer.
func WithIssueTimeout(d time.Duration) Option { return func(a *Authenticator) { a.issueTimeout = d } }

func WithLogger(l *slog.Logger) Option { return func(a *Authenticator) { a.log = l } }

func WithMetrics(m issuanceRecorder) Option { return func(a *Authenticator) { a.metrics = m } }

// NewAuthenticator returns an empty cache in front of issuer.
func NewAuthenticator(issuer TokenIssuer, opts ...Option) *Authenticator {
	a := &Authenticator{
		issuer:       issuer,
		clock:        clock.NewSystem(),
		buffer:       DefaultBuffer,
		issueTimeout: defaultIssueTimeout,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Token returns a bearer token that is outside the safety buffer, issuing a new one if needed.
// A failed refresh falls back to the previous token while it is still before its nominal expiry.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if tok, ok := a.fresh(); ok {
		return tok.Value, nil
	}

	// The flight must outlive the caller that started it.
	issueCtx := context.WithoutCancel(ctx)
	ch := a.flight.DoChan(flightKey, func() (any, error) {
		return a.refresh(issueCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Cached returns the held token, if any.
func (a *Authenticator) Cached() (Token, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return Token{}, false
	}
	return *a.current, true
}

// Invalidate drops the held token if it is still the rejected one, so the next
// call issues a new one. A token issued after the rejection is kept.
func (a *Authenticator) Invalidate(rejected string) {
	a.mu.Lock()
	if a.current != nil && a.current.Value == rejected {
		a.current = nil
	}
	a.mu.Unlock()
}

func (a *Authenticator) fresh() (Token, bool) {
	tok, ok := a.Cached()
	if !ok || tok.Expired(a.clock.Now(), a.buffer) {
		return Token{}, false
	}
	return tok, true
}

// refresh runs inside the single flight.
func (a *Authenticator) refresh(ctx context.Context) (string, error) {
	// Another flight may have finished between the caller's check and this one.
	if tok, ok := a.fresh(); ok {
		return tok.Value, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.issueTimeout)
	defer cancel()

	a.log.Info("access token expired or missing, requesting a new one")
	issued, err := a.issuer.IssueToken(ctx)
	a.metrics.IncTokenIssuance(err == nil)
	if err != nil {
		if old, ok := a.Cached(); ok && old.Usable(a.clock.Now()) {
			a.log.Warn("token refresh failed, serving previous token", "err", err, "expires_at", old.ExpiresAt)
			return old.Value, nil
		}
		return "", &IssuanceError{Cause: err}
	}

	tok := newToken(issued.AccessToken, issued.ExpiresIn, a.clock.Now())

	a.mu.Lock()
	a.current = &tok
	a.mu.Unlock()

	a.log.Info("access token obtained", "expires_at", tok.ExpiresAt)
	return tok.Value, nil
}
