// Package store persists brews by share id.
package store

import (
	"context"
	"errors"

	"github.com/dgallion1/brewsync/internal/brew"
)

// ErrNotFound is returned when no brew has the requested share id.
var ErrNotFound = errors.New("brew not found")

// Store loads and saves documents keyed by ShareID.
type Store interface {
	Get(ctx context.Context, shareID string) (brew.Document, error)
	Put(ctx context.Context, doc brew.Document) error
	Delete(ctx context.Context, shareID string) error
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Couch)(nil)
)
