package sso

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/ssovk/pkg/logger"
	"github.com/dmitrymomot/ssovk/pkg/userdir"
)

// Association is the account-settings entry for the provider.
// URL is the VK profile when linked and the login route otherwise.
type Association struct {
	Associated     bool   `json:"associated"`
	ProviderUserID string `json:"providerUserId,omitempty"`
	URL            string `json:"url"`
	DeauthURL      string `json:"deauthUrl,omitempty"`
	Name           string `json:"name"`
	Icon           string `json:"icon"`
}

// Associations reads and removes a user's provider link.
type Associations struct {
	identities IdentityStore
	users      userdir.Directory
	baseURL    string
	logger     *slog.Logger
}

// AssociationsOption configures Associations.
type AssociationsOption func(*Associations)

// WithAssociationsLogger sets the logger.
func WithAssociationsLogger(l *slog.Logger) AssociationsOption {
	return func(a *Associations) {
		a.logger = l
	}
}

// NewAssociations creates the association surface. baseURL is the public site URL without a trailing slash.
func NewAssociations(identities IdentityStore, users userdir.Directory, baseURL string, opts ...AssociationsOption) *Associations {
	a := &Associations{
		identities: identities,
		users:      users,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Status reports whether uid has a linked VK account.
func (a *Associations) Status(ctx context.Context, uid int64) (Association, error) {
	providerUserID, err := a.linkedID(ctx, uid)
	if err != nil {
		return Association{}, err
	}

	if providerUserID == "" {
		return Association{
			URL:  a.baseURL + LoginPath,
			Name: Label,
			Icon: AdminIcon,
		}, nil
	}
	return Association{
		Associated:     true,
		ProviderUserID: providerUserID,
		URL:            ProfileURL(providerUserID),
		DeauthURL:      a.baseURL + DeauthPath,
		Name:           Label,
		Icon:           AdminIcon,
	}, nil
}

// Unlink removes the mapping and the back-reference of uid. A user without a
// link is a successful no-op, and so is a mapping that is already gone.
func (a *Associations) Unlink(ctx context.Context, uid int64) error {
	providerUserID, err := a.linkedID(ctx, uid)
	if err != nil {
		a.logUnlinkFailure(ctx, uid, err)
		return err
	}
	if providerUserID == "" {
		return nil
	}

	owner, linked, err := a.identities.Lookup(ctx, providerUserID)
	if err != nil {
		a.logUnlinkFailure(ctx, uid, err)
		return err
	}
	if !linked || owner == uid {
		if err := a.identities.Unlink(ctx, providerUserID); err != nil {
			a.logUnlinkFailure(ctx, uid, err)
			return err
		}
	}

	if err := a.users.DeleteUserField(ctx, uid, BackReferenceField); err != nil && !errors.Is(err, userdir.ErrUserNotFound) {
		err = storageErr("delete back-reference", err)
		a.logUnlinkFailure(ctx, uid, err)
		return err
	}

	a.logger.InfoContext(ctx, "provider identity unlinked",
		logger.UserID(uid),
		logger.ProviderUserID(providerUserID),
		logger.Component(SettingsNamespace),
	)
	return nil
}

func (a *Associations) linkedID(ctx context.Context, uid int64) (string, error) {
	id, err := a.users.GetUserField(ctx, uid, BackReferenceField)
	if errors.Is(err, userdir.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageErr("read back-reference", err)
	}
	return id, nil
}

func (a *Associations) logUnlinkFailure(ctx context.Context, uid int64, err error) {
	a.logger.ErrorContext(ctx, "could not remove provider identity",
		logger.UserID(uid),
		logger.Error(err),
		logger.Component(SettingsNamespace),
	)
}
