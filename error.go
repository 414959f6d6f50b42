package bankxatm

import (
	"errors"
	"fmt"
)

var (
	ErrInternalServer    = errors.New("internal server error")
	ErrServiceBusy       = errors.New("service busy")
	ErrEmptyCredential   = errors.New("username and password are required")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrBadCredential     = errors.New("invalid username or password")
	ErrInvalidAmount     = errors.New("amount must be a positive decimal")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotAuthenticated  = errors.New("not authenticated")
)

// ErrBadRequest carries per-field validation messages. Err, when set, is the
// domain error the request violated.
type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
	Err    error             `json:"-"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

type ErrNotFound struct {
	Username string `json:"username"`
}

func (e ErrNotFound) Error() string {
	return "account not found"
}
