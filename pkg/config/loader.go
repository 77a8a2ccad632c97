package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvLoaded sync.Once

// Load parses the process environment into v.
// The .env file in the working directory is loaded on first use; a missing file is not an error.
func Load[T any](v *T) error {
	dotenvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadFrom parses the given variables into v, ignoring the process environment.
func LoadFrom[T any](v *T, environ map[string]string) error {
	if v == nil {
		return ErrNilPointer
	}
	if environ == nil {
		environ = map[string]string{}
	}
	if err := env.ParseWithOptions(v, env.Options{Environment: environ}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
