package storage

import (
	"context"
	"fmt"
)

// BlobStore is a durable string key-value store.
// The itinerary cache and the hidden-group rules persist whole snapshots through it.
type BlobStore interface {
	// Get returns the value stored at key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value stored at key
	Set(ctx context.Context, key, value string) error
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeMemory   StorageType = "memory"
	StorageTypeLocal    StorageType = "local"
	StorageTypeBadger   StorageType = "badger"
	StorageTypePostgres StorageType = "postgres"
)

// Well-known blob keys
const (
	KeyItineraryCache = "itinerary_cache"
	KeyHiddenGroups   = "hidden_groups"
)

// ErrUnknownStorageType is returned for unsupported backend names
type ErrUnknownStorageType struct {
	Type string
}

func (e ErrUnknownStorageType) Error() string {
	return fmt.Sprintf("unknown storage type: %q", e.Type)
}
