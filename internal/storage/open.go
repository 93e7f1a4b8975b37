package storage

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options selects and configures a BlobStore backend
type Options struct {
	Type       string
	BasePath   string
	BadgerPath string
	Table      string
	Pool       *pgxpool.Pool // required for postgres
}

// Open builds the backend named by opts.Type. The returned close func is never nil.
func Open(opts Options) (BlobStore, func() error, error) {
	noop := func() error { return nil }

	switch StorageType(opts.Type) {
	case StorageTypeMemory:
		return NewMemoryStore(), noop, nil
	case StorageTypeLocal, "":
		s, err := NewLocalStorage(opts.BasePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case StorageTypeBadger:
		s, err := OpenBadger(opts.BadgerPath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case StorageTypePostgres:
		if opts.Pool == nil {
			return nil, noop, ErrUnknownStorageType{Type: opts.Type + " (no database pool)"}
		}
		return NewPostgresStore(opts.Pool, opts.Table), noop, nil
	default:
		return nil, noop, ErrUnknownStorageType{Type: opts.Type}
	}
}
