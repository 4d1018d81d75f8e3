package service

import "errors"

var (
	// ErrSessionNotFound is returned for unknown session IDs
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfigNotFound is returned for unknown rule-set names
	ErrConfigNotFound = errors.New("configuration not found")
)
