package sso

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("sso: storage failure")
	// ErrAuth matches every *AuthError.
	ErrAuth = errors.New("sso: authentication failed")

	ErrProviderDisabled = errors.New("sso: provider is not configured")
	ErrInvalidState     = errors.New("sso: invalid or expired oauth state")
	ErrInvalidCode      = errors.New("sso: invalid oauth code")
	ErrInvalidProfile   = errors.New("sso: invalid provider profile")
	ErrAccessDenied     = errors.New("sso: provider denied authorization")
)

// StorageError reports a backend read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("sso storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// AuthError reports a failed account lookup or creation during login resolution.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sso auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func authErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AuthError{Op: op, Err: err}
}
