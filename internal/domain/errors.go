package domain

import "errors"

var (
	ErrNoParentCommit  = errors.New("no parent commit")
	ErrNoDateRange     = errors.New("cannot determine date range")
	ErrNoSourceVersion = errors.New("build has no source commit")

	// ErrUnauthorized is returned by the client when the API responds with HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("request timed out")

	ErrConfigMissing = errors.New("configuration missing")
)
