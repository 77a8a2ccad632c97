package sso

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/dmitrymomot/ssovk/pkg/logger"
	"github.com/dmitrymomot/ssovk/pkg/userdir"
)

// PendingQueue is the part of the key-value store holding unvalidated accounts.
type PendingQueue interface {
	SortedSetRemove(ctx context.Context, set, member string) error
}

// SettingsProvider returns the provider settings in effect.
type SettingsProvider interface {
	Current() ProviderSettings
}

// Resolver maps provider identities to local accounts.
type Resolver struct {
	identities IdentityStore
	users      userdir.Directory
	pending    PendingQueue
	settings   SettingsProvider
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver.
func NewResolver(identities IdentityStore, users userdir.Directory, pending PendingQueue, settings SettingsProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		identities: identities,
		users:      users,
		pending:    pending,
		settings:   settings,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveLogin returns the local user for a fresh (no session) login.
//
// An identity that is already linked resolves to its uid without any write,
// even if the email the provider reports has changed since. Otherwise the
// account owning the email is reused, or a new account is created, and the
// identity is linked to it. Failures are returned as *AuthError.
func (r *Resolver) ResolveLogin(ctx context.Context, profile ExternalProfile) (Resolution, error) {
	if profile.ProviderUserID == "" {
		return Resolution{}, authErr("resolve login", ErrInvalidProfile)
	}

	uid, linked, err := r.identities.Lookup(ctx, profile.ProviderUserID)
	if err != nil {
		return Resolution{}, authErr("lookup identity", err)
	}
	if linked {
		return Resolution{UID: uid, Outcome: OutcomeExisting}, nil
	}

	outcome := OutcomeMerged
	uid, err = r.users.GetUIDByEmail(ctx, profile.Email)
	if err != nil {
		return Resolution{}, authErr("lookup email", err)
	}
	if uid == 0 {
		uid, err = r.users.Create(ctx, userdir.CreateParams{
			Username: displayNameOrID(profile),
			Email:    profile.Email,
		})
		if err != nil {
			return Resolution{}, authErr("create user", err)
		}
		outcome = OutcomeCreated
	}

	if err := r.finalize(ctx, uid, profile); err != nil {
		r.logger.ErrorContext(ctx, "failed to finalize provider link",
			logger.UserID(uid),
			logger.ProviderUserID(profile.ProviderUserID),
			logger.Error(err),
			logger.Component(SettingsNamespace),
		)
		return Resolution{}, authErr("finalize link", err)
	}

	r.logger.InfoContext(ctx, "provider identity linked",
		logger.UserID(uid),
		logger.ProviderUserID(profile.ProviderUserID),
		slog.String("outcome", outcome.String()),
		logger.Component(SettingsNamespace),
	)

	return Resolution{UID: uid, Outcome: outcome}, nil
}

// LinkSession links providerUserID to the already authenticated user uid.
// Email lookup, account creation, confirmation and avatar are not touched.
// A previous link on either side is released so that each VK account maps
// to one user and each user to one VK account.
func (r *Resolver) LinkSession(ctx context.Context, uid int64, providerUserID string) (Resolution, error) {
	if uid <= 0 || providerUserID == "" {
		return Resolution{}, authErr("link session", ErrInvalidProfile)
	}

	owner, linked, err := r.identities.Lookup(ctx, providerUserID)
	if err != nil {
		return Resolution{}, authErr("lookup identity", err)
	}
	if linked && owner != uid {
		if err := r.clearBackReference(ctx, owner, providerUserID); err != nil {
			return Resolution{}, authErr("link session", err)
		}
		r.logger.WarnContext(ctx, "provider identity moved to another user",
			logger.UserID(uid),
			slog.Int64("previous_uid", owner),
			logger.ProviderUserID(providerUserID),
			logger.Component(SettingsNamespace),
		)
	}

	if err := r.writeLink(ctx, uid, providerUserID); err != nil {
		r.logger.ErrorContext(ctx, "failed to link provider identity to session user",
			logger.UserID(uid),
			logger.ProviderUserID(providerUserID),
			logger.Error(err),
			logger.Component(SettingsNamespace),
		)
		return Resolution{}, authErr("link session", err)
	}

	return Resolution{UID: uid, Outcome: OutcomeSessionLinked}, nil
}

func (r *Resolver) finalize(ctx context.Context, uid int64, profile ExternalProfile) error {
	if r.settings.Current().AutoConfirm {
		if err := r.users.SetUserField(ctx, uid, userdir.FieldEmailConfirmed, "1"); err != nil {
			return storageErr("confirm email", err)
		}
		if err := r.pending.SortedSetRemove(ctx, userdir.PendingValidationSet, formatUID(uid)); err != nil {
			return storageErr("dequeue validation", err)
		}
	}

	if err := r.writeLink(ctx, uid, profile.ProviderUserID); err != nil {
		return err
	}

	if profile.AvatarURL != "" {
		if err := r.users.SetUserField(ctx, uid, userdir.FieldUploadedPic, profile.AvatarURL); err != nil {
			return storageErr("set avatar", err)
		}
		if err := r.users.SetUserField(ctx, uid, userdir.FieldPicture, profile.AvatarURL); err != nil {
			return storageErr("set avatar", err)
		}
	}
	return nil
}

// writeLink writes both directions of the link, releasing the mapping of
// any other VK account uid was linked to before.
func (r *Resolver) writeLink(ctx context.Context, uid int64, providerUserID string) error {
	previous, err := r.users.GetUserField(ctx, uid, BackReferenceField)
	if err != nil {
		return storageErr("read back-reference", err)
	}
	if previous != "" && previous != providerUserID {
		if err := r.releaseMapping(ctx, uid, previous); err != nil {
			return err
		}
	}

	if err := r.users.SetUserField(ctx, uid, BackReferenceField, providerUserID); err != nil {
		return storageErr("write back-reference", err)
	}
	if err := r.identities.Link(ctx, providerUserID, uid); err != nil {
		return err
	}
	return nil
}

// releaseMapping removes providerUserID's mapping if it still points at uid.
func (r *Resolver) releaseMapping(ctx context.Context, uid int64, providerUserID string) error {
	owner, linked, err := r.identities.Lookup(ctx, providerUserID)
	if err != nil {
		return err
	}
	if linked && owner != uid {
		return nil
	}
	return r.identities.Unlink(ctx, providerUserID)
}

func (r *Resolver) clearBackReference(ctx context.Context, uid int64, providerUserID string) error {
	current, err := r.users.GetUserField(ctx, uid, BackReferenceField)
	if errors.Is(err, userdir.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return storageErr("read back-reference", err)
	}
	if current != providerUserID {
		return nil
	}
	if err := r.users.DeleteUserField(ctx, uid, BackReferenceField); err != nil {
		return storageErr("clear back-reference", err)
	}
	return nil
}

func displayNameOrID(profile ExternalProfile) string {
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	return "id" + profile.ProviderUserID
}
