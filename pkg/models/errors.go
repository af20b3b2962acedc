package models

import (
	"errors"
	"fmt"
)

// Errores base. Los servicios los envuelven con fmt.Errorf("...: %w", ...)
// y los handlers los traducen a códigos HTTP.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUpstream          = errors.New("upstream error")
	ErrUnknownPayload    = fmt.Errorf("%w: unrecognized payload shape", ErrValidation)
	ErrMissingDNI        = fmt.Errorf("%w: DNI custom field is required", ErrValidation)
	ErrInvalidTransition = errors.New("invalid status transition")
)
