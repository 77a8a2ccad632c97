// Package sqlmigrate applies the embedded kvstore schema with goose.
package sqlmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// ErrFailedToApplyMigrations is returned when goose fails to bring the schema up to date.
var ErrFailedToApplyMigrations = errors.New("sqlmigrate: failed to apply migrations")

// goose keeps its dialect, base FS and logger in package globals.
var mu sync.Mutex

// Up applies every migration found at the root of fsys.
func Up(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS, log *slog.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&slogAdapter{log: log})
	goose.SetTableName("kvstore_migrations")

	if err := goose.SetDialect(dialect); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// slogAdapter routes goose's printf-style output through slog.
type slogAdapter struct {
	log *slog.Logger
}

func (a *slogAdapter) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...), slog.String("component", "kvstore_migrations"))
}

func (a *slogAdapter) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...), slog.String("component", "kvstore_migrations"))
}
