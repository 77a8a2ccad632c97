package userdir

import "errors"

var (
	ErrUserNotFound    = errors.New("userdir: user not found")
	ErrInvalidUsername = errors.New("userdir: invalid username")
	ErrInvalidEmail    = errors.New("userdir: invalid email")
	ErrEmailTaken      = errors.New("userdir: email already taken")
)
