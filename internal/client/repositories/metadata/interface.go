package metadata

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("metadata key not found")

// Repository is a small key/value store for client state that outlives a
// process, such as the signed-in profile.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	// SetMany writes all pairs in one transaction.
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	// List returns the pairs whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
}
