package models

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid_input")
	ErrNotFound           = errors.New("not_found")
	ErrCapacityExceeded   = errors.New("capacity_exceeded")
	ErrPreconditionFailed = errors.New("precondition_failed")
	ErrIllegalTransition  = errors.New("illegal_transition")
)
