// Package store persists the emotional context of returning visitors.
package store

import (
	"context"
	"errors"
	"time"
)

const keyPrefix = "canvasthink:emotional-context:"

var ErrNotFound = errors.New("emotional context not found")

// ContextStore keeps one opaque snapshot per visitor.
type ContextStore interface {
	Load(ctx context.Context, visitorID string) ([]byte, error)
	Save(ctx context.Context, visitorID string, data []byte) error
	Delete(ctx context.Context, visitorID string) error
}

// Key returns the storage key of a visitor's snapshot.
func Key(visitorID string) string {
	return keyPrefix + visitorID
}

// DefaultTTL keeps a snapshot for a month of inactivity.
const DefaultTTL = 30 * 24 * time.Hour
