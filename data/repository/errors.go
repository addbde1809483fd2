package repository

import "errors"

var (
	// ErrCorrupt marks a portfolio file that exists but can't be read or parsed.
	ErrCorrupt = errors.New("portfolio file corrupt")
)
