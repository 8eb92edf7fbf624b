package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("answer session not found")
	ErrAnswerNotFound       = errors.New("answer not found")
	ErrFormClosed           = errors.New("form is closed")
	ErrDeadlineReached      = errors.New("deadline reached")
	ErrSubmissionsLimit     = errors.New("submissions limit reached")
	ErrRequiredFieldMissing = errors.New("required field not answered")
	ErrInvalidAnswer        = errors.New("could not validate answer")
)
