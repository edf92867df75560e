package service

import "errors"

// Ошибки сервиса
var (
	// ErrNotFound: the short code or link id matches nothing the caller may see.
	ErrNotFound = errors.New("link not found")
	// ErrStorageUnavailable: the store could not answer; the only failure that aborts a redirect.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded: the shared anonymous daily quota is used up.
	ErrQuotaExceeded = errors.New("anonymous daily quota exceeded")

	ErrInvalidURL   = errors.New("invalid URL")
	ErrInvalidCode  = errors.New("invalid custom alias")
	ErrSpamDomain   = errors.New("domain is blacklisted")
	ErrCodeTaken    = errors.New("custom alias already in use")
	ErrMissingOwner = errors.New("link owner is required")
	ErrInvalidLimit = errors.New("limit must be a non-negative integer")
)
