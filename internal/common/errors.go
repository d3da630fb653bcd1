// Package common defines shared constants and sentinel errors used across
// the service layers of passkeyd. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound            = errors.New("not found")
	ErrorDuplicateCredential = errors.New("duplicate credential")
	ErrorCounterRegression   = errors.New("counter regression")
	ErrorNoValidChallenge    = errors.New("no valid challenge")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Ceremony-specific errors.
	ErrorNoCredentials = errors.New("no registered credentials")

	// Session token errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
