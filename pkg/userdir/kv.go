package userdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/logger"
)

const (
	globalKey        = "global"
	nextUIDField     = "nextUid"
	emailIndexKey    = "email:uid"
	usernameIndexKey = "username:uid"
	userslugIndexKey = "userslug:uid"
	joinDateSet      = "users:joindate"

	maxUsernameLength = 40
	maxSuffixAttempts = 100
)

var slugUnsafe = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Ensure KVDirectory implements Directory.
var _ Directory = (*KVDirectory)(nil)

// KVDirectory implements Directory over a kvstore.Store.
type KVDirectory struct {
	store  kvstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a KVDirectory.
type Option func(*KVDirectory)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *KVDirectory) {
		d.logger = l
	}
}

// WithClock overrides the time source used for join dates.
func WithClock(now func() time.Time) Option {
	return func(d *KVDirectory) {
		d.now = now
	}
}

// NewKV creates a directory backed by store.
func NewKV(store kvstore.Store, opts ...Option) *KVDirectory {
	d := &KVDirectory{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *KVDirectory) GetUserField(ctx context.Context, uid int64, field string) (string, error) {
	if err := d.ensureExists(ctx, uid); err != nil {
		return "", err
	}

	value, err := d.store.GetObjectField(ctx, userKey(uid), field)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user field %q: %w", field, err)
	}
	return value, nil
}

func (d *KVDirectory) SetUserField(ctx context.Context, uid int64, field, value string) error {
	if err := d.ensureExists(ctx, uid); err != nil {
		return err
	}
	if err := d.store.SetObjectField(ctx, userKey(uid), field, value); err != nil {
		return fmt.Errorf("set user field %q: %w", field, err)
	}
	return nil
}

func (d *KVDirectory) DeleteUserField(ctx context.Context, uid int64, field string) error {
	if err := d.ensureExists(ctx, uid); err != nil {
		return err
	}
	if err := d.store.DeleteObjectField(ctx, userKey(uid), field); err != nil {
		return fmt.Errorf("delete user field %q: %w", field, err)
	}
	return nil
}

// GetUIDByEmail matches emails case-insensitively.
func (d *KVDirectory) GetUIDByEmail(ctx context.Context, email string) (int64, error) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, nil
	}

	raw, err := d.store.GetObjectField(ctx, emailIndexKey, email)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup email: %w", err)
	}

	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lookup email: corrupt uid %q: %w", raw, err)
	}
	return uid, nil
}

// Create allocates a uid and writes the user record together with its lookup entries.
// A taken username gets a numeric suffix, the way the host forum resolves collisions.
// New users are queued in PendingValidationSet until their email is confirmed.
func (d *KVDirectory) Create(ctx context.Context, params CreateParams) (int64, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" || len([]rune(username)) > maxUsernameLength {
		return 0, ErrInvalidUsername
	}

	email := normalizeEmail(params.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return 0, ErrInvalidEmail
		}
		existing, err := d.GetUIDByEmail(ctx, email)
		if err != nil {
			return 0, err
		}
		if existing != 0 {
			return 0, ErrEmailTaken
		}
	}

	username, slug, err := d.availableUsername(ctx, username)
	if err != nil {
		return 0, err
	}

	uid, err := d.store.IncrObjectField(ctx, globalKey, nextUIDField)
	if err != nil {
		return 0, fmt.Errorf("allocate uid: %w", err)
	}

	now := d.now()
	uidStr := strconv.FormatInt(uid, 10)
	record := map[string]string{
		FieldUID:      uidStr,
		FieldUsername: username,
		FieldUserslug: slug,
		FieldJoinDate: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if email != "" {
		record[FieldEmail] = email
	}

	if err := d.store.SetObject(ctx, userKey(uid), record); err != nil {
		return 0, fmt.Errorf("write user record: %w", err)
	}
	if err := d.store.SetObjectField(ctx, usernameIndexKey, username, uidStr); err != nil {
		return 0, fmt.Errorf("index username: %w", err)
	}
	if err := d.store.SetObjectField(ctx, userslugIndexKey, slug, uidStr); err != nil {
		return 0, fmt.Errorf("index userslug: %w", err)
	}
	if err := d.store.SortedSetAdd(ctx, joinDateSet, float64(now.UnixMilli()), uidStr); err != nil {
		return 0, fmt.Errorf("index join date: %w", err)
	}
	if email != "" {
		if err := d.store.SetObjectField(ctx, emailIndexKey, email, uidStr); err != nil {
			return 0, fmt.Errorf("index email: %w", err)
		}
		if err := d.store.SortedSetAdd(ctx, PendingValidationSet, float64(now.UnixMilli()), uidStr); err != nil {
			return 0, fmt.Errorf("queue email validation: %w", err)
		}
	}

	d.logger.DebugContext(ctx, "user created",
		logger.UserID(uid),
		slog.String("username", username),
		logger.Component("userdir"),
	)

	return uid, nil
}

func (d *KVDirectory) availableUsername(ctx context.Context, username string) (string, string, error) {
	candidate := username
	for i := range maxSuffixAttempts {
		if i > 0 {
			suffix := fmt.Sprintf(" %d", i)
			base := []rune(username)
			if len(base)+len(suffix) > maxUsernameLength {
				base = base[:maxUsernameLength-len(suffix)]
			}
			candidate = strings.TrimRight(string(base), " ") + suffix
		}
		slug := slugify(candidate)
		if slug == "" {
			return "", "", ErrInvalidUsername
		}

		_, err := d.store.GetObjectField(ctx, userslugIndexKey, slug)
		if errors.Is(err, kvstore.ErrNotFound) {
			return candidate, slug, nil
		}
		if err != nil {
			return "", "", fmt.Errorf("check username: %w", err)
		}
	}
	return "", "", ErrInvalidUsername
}

func (d *KVDirectory) ensureExists(ctx context.Context, uid int64) error {
	if uid <= 0 {
		return ErrUserNotFound
	}
	_, err := d.store.GetObjectField(ctx, userKey(uid), FieldUID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	return nil
}

func userKey(uid int64) string {
	return "user:" + strconv.FormatInt(uid, 10)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "-")
	return strings.Trim(slugUnsafe.ReplaceAllString(s, ""), "-")
}
