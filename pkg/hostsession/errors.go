package hostsession

import "errors"

var (
	ErrNoSecret         = errors.New("hostsession: no secret configured")
	ErrSecretTooShort   = errors.New("hostsession: secret too short")
	ErrInvalidSignature = errors.New("hostsession: invalid signature")
	ErrInvalidFormat    = errors.New("hostsession: invalid cookie format")
	ErrExpired          = errors.New("hostsession: session expired")
	ErrNoSession        = errors.New("hostsession: no session")
	ErrInvalidUID       = errors.New("hostsession: invalid uid")
)
