package service

import "errors"

// Domain errors. Handlers classify them with errors.Is; anything else is a
// persistence failure and surfaces as a 500.
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionNotDraft       = errors.New("session is already completed or cancelled")
	ErrCannotDeleteFinalized = errors.New("cannot delete a completed or cancelled session")
	ErrLineItemNotFound      = errors.New("line item not found")
	ErrMaterialNotFound      = errors.New("material not found")
	ErrBranchNotFound        = errors.New("branch not found")

	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// validationErr wraps ErrValidation with a client-facing message.
type validationErr struct{ msg string }

func (e *validationErr) Error() string { return e.msg }
func (e *validationErr) Unwrap() error { return ErrValidation }

func invalid(msg string) error { return &validationErr{msg: msg} }
