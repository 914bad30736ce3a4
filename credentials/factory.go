package credentials

import (
	"path/filepath"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Backend names a Store implementation
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

const sqliteFileName = "credentials.db"

// OpenOptions selects and configures the backend opened by Open
type OpenOptions struct {
	Backend Backend
	// Path is the directory for the file backend and the database file for
	// sqlite. Empty uses DefaultDir.
	Path    string
	SealKey string // file backend only
	Redis   RedisConfig
	Profile string
}

// Open builds the configured Store. The returned close func releases the
// backend's resources and is never nil.
func Open(opts OpenOptions) (Store, func() error, error) {
	noop := func() error { return nil }
	key := KeyForProfile(opts.Profile)

	switch opts.Backend {
	case BackendFile, "":
		dir := opts.Path
		if dir == "" {
			var err error
			if dir, err = DefaultDir(); err != nil {
				return nil, noop, err
			}
		}
		store, err := NewFileStore(dir, key, WithSealKey(opts.SealKey))
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case BackendSQLite:
		dbPath := opts.Path
		if dbPath == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, noop, err
			}
			dbPath = filepath.Join(dir, sqliteFileName)
		}
		store, err := NewSQLiteStore(dbPath, key)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case BackendRedis:
		store, err := NewRedisStore(opts.Redis, key)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}

	return nil, noop, autherrors.Wrapf(autherrors.ErrUnknownBackend, "[credentials.Open] %q", string(opts.Backend))
}
