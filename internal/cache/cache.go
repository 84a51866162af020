// Package cache provides keyed TTL stores for upstream responses and client
// queries.
package cache

import (
	"context"
	"time"
)

// Store is a keyed byte cache with per-entry expiry.
type Store interface {
	// Get returns the value for key and whether a fresh entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidatePrefix drops every entry whose key starts with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)       { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) InvalidatePrefix(context.Context, string) error           { return nil }

var (
	_ Store = Nop{}
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
