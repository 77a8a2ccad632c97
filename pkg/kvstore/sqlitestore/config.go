package sqlitestore

import "time"

// Config describes the embedded SQLite database file.
type Config struct {
	Path        string        `env:"SQLITE_PATH" envDefault:"data/ssovk.db"`
	BusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
}
