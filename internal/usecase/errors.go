package usecase

import "errors"

var (
	ErrValidation            = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNoProviderForSport    = errors.New("no provider supports sport")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)
