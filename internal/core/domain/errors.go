package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// InvalidTransitionError reports a state-machine transition attempted from a
// state that does not permit it. The current state is always named so staff
// UIs can react.
type InvalidTransitionError struct {
	Entity     string
	Current    string
	Transition string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s in state %s does not permit %s", e.Entity, e.Current, e.Transition)
}

// NewInvalidTransition builds an InvalidTransitionError
func NewInvalidTransition(entity, current, transition string) error {
	return &InvalidTransitionError{Entity: entity, Current: current, Transition: transition}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
