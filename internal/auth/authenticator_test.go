package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/travel-aggregator/internal/auth"
	"github.com/neexbeast/travel-aggregator/internal/clock"
)

// ---- fake issuer ----

type fakeIssuer struct {
	calls   atomic.Int32
	issueFn func(ctx context.Context, call int32) (auth.IssuedToken, error)
}

func (f *fakeIssuer) IssueToken(ctx context.Context) (auth.IssuedToken, error) {
	n := f.calls.Add(1)
	return f.issueFn(ctx, n)
}

func sequentialTokens(expiresIn int64) func(context.Context, int32) (auth.IssuedToken, error) {
	return func(_ context.Context, call int32) (auth.IssuedToken, error) {
		return auth.IssuedToken{
			AccessToken: fmt.Sprintf("tok-%d", call),
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		}, nil
	}
}

var t0 = time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)

// ---- caching and expiry ----

func TestToken_CachedUntilBuffer(t *testing.T) {
	clk := clock.NewManual(t0)
	issuer := &fakeIssuer{issueFn: sequentialTokens(1800)}
	a := auth.NewAuthenticator(issuer, auth.WithClock(clk))

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// Last instant before the 60s buffer.
	clk.Advance(1739 * time.Second)
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), issuer.calls.Load())

	// T + E - 60 triggers exactly one re-issuance.
	clk.Advance(time.Second)
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)

	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), issuer.calls.Load())
}

func TestToken_ShortLivedTokenIsExpiredImmediately(t *testing.T) {
	clk := clock.NewManual(t0)
	issuer := &fakeIssuer{issueFn: sequentialTokens(5)}
	a := auth.NewAuthenticator(issuer, auth.WithClock(clk))

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	cached, ok := a.Cached()
	require.True(t, ok)
	assert.True(t, cached.Expired(clk.Now(), auth.DefaultBuffer), "5s token is inside the 60s buffer")

	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), issuer.calls.Load())
}

func TestToken_CustomBuffer(t *testing.T) {
	clk := clock.NewManual(t0)
	issuer := &fakeIssuer{issueFn: sequentialTokens(5)}
	a := auth.NewAuthenticator(issuer, auth.WithClock(clk), auth.WithBuffer(time.Second))

	_, err := a.Token(context.Background())
	require.NoError(t, err)
	_, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), issuer.calls.Load())
}

// ---- concurrency ----

func TestToken_ConcurrentCallersShareOneIssuance(t *testing.T) {
	const n = 50
	release := make(chan struct{})
	issuer := &fakeIssuer{issueFn: func(ctx context.Context, call int32) (auth.IssuedToken, error) {
		<-release
		return sequentialTokens(3600)(ctx, call)
	}}
	a := auth.NewAuthenticator(issuer)

	var ready, done sync.WaitGroup
	ready.Add(n)
	done.Add(n)
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = a.Token(context.Background())
		}(i)
	}

	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), issuer.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-1", results[i])
	}
}

func TestToken_ConcurrentCallersShareFailure(t *testing.T) {
	const n = 20
	release := make(chan struct{})
	issuer := &fakeIssuer{issueFn: func(_ context.Context, _ int32) (auth.IssuedToken, error) {
		<-release
		return auth.IssuedToken{}, errors.New("auth server down")
	}}
	a := auth.NewAuthenticator(issuer)

	var ready, done sync.WaitGroup
	ready.Add(n)
	done.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			_, errs[i] = a.Token(context.Background())
		}(i)
	}

	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), issuer.calls.Load())
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrIssuanceFailed))
		assert.Equal(t, errs[0].Error(), err.Error())
	}
}

// ---- failures ----

func TestToken_FailureOnEmptyCache(t *testing.T) {
	cause := errors.New("connection refused")
	issuer := &fakeIssuer{issueFn: func(_ context.Context, _ int32) (auth.IssuedToken, error) {
		return auth.IssuedToken{}, cause
	}}
	a := auth.NewAuthenticator(issuer)

	_, err := a.Token(context.Background())
	require.Error(t, err)

	var issErr *auth.IssuanceError
	require.True(t, errors.As(err, &issErr))
	assert.ErrorIs(t, err, cause)

	_, ok := a.Cached()
	assert.False(t, ok)
}

func TestToken_RefreshFailureKeepsPreviousToken(t *testing.T) {
	clk := clock.NewManual(t0)
	fail := atomic.Bool{}
	issuer := &fakeIssuer{issueFn: func(ctx context.Context, call int32) (auth.IssuedToken, error) {
		if fail.Load() {
			return auth.IssuedToken{}, errors.New("503 from auth server")
		}
		return sequentialTokens(600)(ctx, call)
	}}
	a := auth.NewAuthenticator(issuer, auth.WithClock(clk))

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	fail.Store(true)

	// Inside the buffer but before nominal expiry: old token still served.
	clk.Advance(545 * time.Second)
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(2), issuer.calls.Load())

	cached, ok := a.Cached()
	require.True(t, ok)
	assert.Equal(t, "tok-1", cached.Value)

	// Past nominal expiry: the failure surfaces, cache left as it was.
	clk.Advance(55 * time.Second)
	_, err = a.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrIssuanceFailed))

	cached, ok = a.Cached()
	require.True(t, ok)
	assert.Equal(t, "tok-1", cached.Value)

	// Recovery replaces the old token.
	fail.Store(false)
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-4", tok)
}

func TestToken_IssueTimeout(t *testing.T) {
	issuer := &fakeIssuer{issueFn: func(ctx context.Context, _ int32) (auth.IssuedToken, error) {
		<-ctx.Done()
		return auth.IssuedToken{}, ctx.Err()
	}}
	a := auth.NewAuthenticator(issuer, auth.WithIssueTimeout(20*time.Millisecond))

	_, err := a.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrIssuanceFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestToken_CallerCancellationDoesNotAbortIssuance(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	issuer := &fakeIssuer{issueFn: func(ctx context.Context, call int32) (auth.IssuedToken, error) {
		close(entered)
		select {
		case <-release:
		case <-ctx.Done():
			return auth.IssuedToken{}, ctx.Err()
		}
		return sequentialTokens(3600)(ctx, call)
	}}
	a := auth.NewAuthenticator(issuer)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := a.Token(ctx)
		errCh <- err
	}()

	<-entered
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), issuer.calls.Load())
}

func TestInvalidate_ForcesReissue(t *testing.T) {
	issuer := &fakeIssuer{issueFn: sequentialTokens(3600)}
	a := auth.NewAuthenticator(issuer)

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	a.Invalidate("tok-1")
	_, ok := a.Cached()
	assert.False(t, ok)

	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestInvalidate_KeepsNewerToken(t *testing.T) {
	issuer := &fakeIssuer{issueFn: sequentialTokens(3600)}
	a := auth.NewAuthenticator(issuer)

	_, err := a.Token(context.Background())
	require.NoError(t, err)
	a.Invalidate("tok-1")

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)

	// A late rejection of tok-1 must not discard tok-2.
	a.Invalidate("tok-1")
	cached, ok := a.Cached()
	require.True(t, ok)
	assert.Equal(t, "tok-2", cached.Value)

	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), issuer.calls.Load())
}

// ---- Token ----

func TestTokenExpired_Boundaries(t *testing.T) {
	tok := auth.Token{Value: "x", ExpiresAt: t0.Add(100 * time.Second)}

	assert.False(t, tok.Expired(t0, auth.DefaultBuffer))
	assert.False(t, tok.Expired(t0.Add(39*time.Second), auth.DefaultBuffer))
	assert.True(t, tok.Expired(t0.Add(40*time.Second), auth.DefaultBuffer))
	assert.True(t, tok.Usable(t0.Add(99*time.Second)))
	assert.False(t, tok.Usable(t0.Add(100*time.Second)))
}
