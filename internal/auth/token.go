package auth

import (
	"errors"
	"fmt"
	"time"
)

// DefaultBuffer is subtracted from a token's nominal expiry to force an early refresh.
const DefaultBuffer = 60 * time.Second

// ErrIssuanceFailed is matched by every IssuanceError.
var ErrIssuanceFailed = errors.New("token issuance failed")

// IssuanceError wraps the reason a token could not be obtained.
type IssuanceError struct {
	Cause error
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("token issuance failed: %v", e.Cause)
}

func (e *IssuanceError) Unwrap() error { return e.Cause }

func (e *IssuanceError) Is(target error) bool {
	return target == ErrIssuanceFailed
}

// Token is an issued bearer token. ExpiresAt is the nominal expiry reported by the issuer.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// newToken builds a Token issued at now that lives for expiresIn seconds.
func newToken(value string, expiresIn int64, now time.Time) Token {
	return Token{
		Value:     value,
		ExpiresAt: now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Expired reports whether the token is inside the safety buffer at now.
func (t Token) Expired(now time.Time, buffer time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-buffer))
}

// Usable reports whether the token is still before its nominal expiry.
func (t Token) Usable(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
