package userdir

import "context"

// Well-known user fields.
const (
	FieldUID            = "uid"
	FieldUsername       = "username"
	FieldUserslug       = "userslug"
	FieldEmail          = "email"
	FieldEmailConfirmed = "email:confirmed"
	FieldPicture        = "picture"
	FieldUploadedPic    = "uploadedpicture"
	FieldJoinDate       = "joindate"
	FieldLastOnline     = "lastonline"
)

// Well-known keys shared with other components.
const (
	// PendingValidationSet holds uids whose email is not confirmed yet.
	PendingValidationSet = "users:notvalidated"
)

// CreateParams describes a new local account.
type CreateParams struct {
	Username string
	Email    string
}

// Directory is the host's user directory as seen by the SSO plugin.
type Directory interface {
	// GetUserField returns a single field of the user record, or "" when unset.
	// Returns ErrUserNotFound when the user does not exist.
	GetUserField(ctx context.Context, uid int64, field string) (string, error)

	// SetUserField upserts a single field of the user record.
	SetUserField(ctx context.Context, uid int64, field, value string) error

	// DeleteUserField removes a single field of the user record. Missing fields are ignored.
	DeleteUserField(ctx context.Context, uid int64, field string) error

	// GetUIDByEmail returns the uid owning email, or 0 when there is none.
	GetUIDByEmail(ctx context.Context, email string) (int64, error)

	// Create creates a new user and returns its uid.
	Create(ctx context.Context, params CreateParams) (int64, error)
}
