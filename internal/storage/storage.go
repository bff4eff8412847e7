// Package storage provides the persistence backends the state stores write
// through. Every piece of application state is a single JSON value stored
// under a key namespaced with the "moosedocs." prefix.
package storage

import (
	"context"
	"errors"
)

// Prefix is prepended to every key written by the application stores.
const Prefix = "moosedocs."

// Well-known state keys.
const (
	KeyActiveUser = Prefix + "user"
	KeyUsers      = Prefix + "users"
	KeyPasswords  = Prefix + "passwords"
	KeyDocuments  = Prefix + "documents"
	KeyBackground = Prefix + "background"
)

var ErrKeyNotFound = errors.New("key not found")

// Backend abstracts where state lives. Implementations must be safe for
// concurrent use.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
