package errors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalid            = errors.New("invalid")
	ErrConflict           = errors.New("conflict")
	ErrTooMany            = errors.New("too many requests")
	ErrInternal           = errors.New("internal")
	ErrEmptyFile          = errors.New("import file is empty")
	ErrFileTooLarge       = errors.New("import file too large")
	ErrFormatUnrecognized = errors.New("format-unrecognized")
	ErrReauthRequired     = errors.New("remote session unavailable, please re-authenticate")
	ErrJobFailed          = errors.New("import job failed")
	ErrStalled            = errors.New("import stalled, please retry")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsReauthRequired(err error) bool {
	return errors.Is(err, ErrReauthRequired)
}
