package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/go-auth-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the token pair in a single JSON file, optionally sealed
// with a passphrase.
type FileStore struct {
	path     string
	sealKey  []byte
	lock     sync.Mutex
	fileMode os.FileMode
}

// FileStoreOption configures a FileStore
type FileStoreOption func(*FileStore)

// WithSealKey encrypts the stored file with a key derived from passphrase.
// An empty passphrase leaves the file in plain JSON.
func WithSealKey(passphrase string) FileStoreOption {
	return func(fs *FileStore) {
		if passphrase != "" {
			fs.sealKey = []byte(passphrase)
		}
	}
}

// DefaultDir returns the default credential directory (~/.local/share/shopctl).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "shopctl"), nil
}

// NewFileStore creates a store for key inside dir, creating dir if needed.
func NewFileStore(dir, key string, options ...FileStoreOption) (*FileStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create credential directory")
	}

	fs := &FileStore{
		path:     filepath.Join(dir, fileNameForKey(key)),
		fileMode: 0o600,
	}
	for _, opt := range options {
		opt(fs)
	}
	return fs, nil
}

// Path is the file backing the store
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Save(pair token.Pair) error {
	data, err := pair.Encode()
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save]")
	}
	if fs.sealKey != nil {
		if data, err = seal(fs.sealKey, data); err != nil {
			return errors.Wrap(err, "[FileStore.Save]")
		}
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.writeAtomic(data)
}

func (fs *FileStore) Load() (*token.Pair, error) {
	fs.lock.Lock()
	data, err := os.ReadFile(fs.path)
	fs.lock.Unlock()

	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] os.ReadFile")
	}

	if fs.sealKey != nil {
		plain, err := unseal(fs.sealKey, data)
		if err != nil {
			log.Warn().Err(err).Str("path", fs.path).Msg("Discarding unreadable sealed credentials")
			return nil, nil
		}
		data = plain
	}
	return decodeOrAbsent(data), nil
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] os.Remove")
	}
	return nil
}

// writeAtomic writes through a temp file and rename so a crash never leaves a
// half-written credential file behind.
func (fs *FileStore) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.writeAtomic] os.CreateTemp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(fs.fileMode); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.writeAtomic] chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.writeAtomic] write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.writeAtomic] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.writeAtomic] close")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.writeAtomic] rename")
	}
	return nil
}

func fileNameForKey(key string) string {
	return strings.NewReplacer(":", "-", "/", "-", `\`, "-").Replace(key) + ".json"
}
