// Package settings stores per-plugin configuration namespaces in the host's
// key-value store, one object per namespace under "settings:<namespace>".
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/ssovk/pkg/kvstore"
)

// ErrEmptyNamespace is returned when a namespace is blank.
var ErrEmptyNamespace = errors.New("settings: empty namespace")

// Store reads and writes settings namespaces.
type Store struct {
	kv kvstore.Store
}

// New creates a settings store over kv.
func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Get returns all values stored in namespace. A namespace that was never saved yields an empty map.
func (s *Store) Get(ctx context.Context, namespace string) (map[string]string, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	values, err := s.kv.GetObject(ctx, key(namespace))
	if err != nil {
		return nil, fmt.Errorf("load settings %q: %w", namespace, err)
	}
	return values, nil
}

// Set merges values into namespace. Fields not present in values are left untouched.
func (s *Store) Set(ctx context.Context, namespace string, values map[string]string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.kv.SetObject(ctx, key(namespace), values); err != nil {
		return fmt.Errorf("save settings %q: %w", namespace, err)
	}
	return nil
}

func key(namespace string) string {
	return "settings:" + namespace
}
