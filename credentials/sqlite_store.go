package credentials

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-auth-client/token"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const createCredentialsTableSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store backed by a SQLite database. Several profiles
// can share one database file, each under its own key.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the schema exists.
func NewSQLiteStore(dbPath, key string) (*SQLiteStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewSQLiteStore] create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSQLiteStore] open sqlite")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[NewSQLiteStore] set WAL mode")
	}

	if _, err := db.Exec(createCredentialsTableSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[NewSQLiteStore] create tables")
	}

	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Save(pair token.Pair) error {
	data, err := pair.Encode()
	if err != nil {
		return errors.Wrap(err, "[SQLiteStore.Save]")
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO credentials (key, value, updated_at)
		VALUES (?, ?, ?)`,
		s.key, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "[SQLiteStore.Save] insert")
	}
	return nil
}

func (s *SQLiteStore) Load() (*token.Pair, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, s.key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[SQLiteStore.Load] query")
	}
	return decodeOrAbsent([]byte(value)), nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, s.key); err != nil {
		return errors.Wrap(err, "[SQLiteStore.Clear] delete")
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// putRaw stores an arbitrary value under the store's key. Tests use it to
// simulate corrupted rows.
func (s *SQLiteStore) putRaw(value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO credentials (key, value, updated_at)
		VALUES (?, ?, ?)`,
		s.key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
