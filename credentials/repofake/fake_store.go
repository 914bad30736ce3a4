package repofake

import (
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/token"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store. It keeps the serialised form,
// like a real backend, so tests can inject corrupt data.
type FakeStore struct {
	raw     []byte
	present bool
	lock    sync.RWMutex

	saves  int
	clears int

	failSave error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// SetRaw replaces the stored bytes verbatim
func (fs *FakeStore) SetRaw(raw []byte) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.raw = append([]byte(nil), raw...)
	fs.present = true
}

// Raw returns the stored bytes and whether anything is stored
func (fs *FakeStore) Raw() ([]byte, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return append([]byte(nil), fs.raw...), fs.present
}

// FailSave makes subsequent Save calls return err; nil restores normal behaviour
func (fs *FakeStore) FailSave(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failSave = err
}

func (fs *FakeStore) Saves() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.saves
}

func (fs *FakeStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}

func (fs *FakeStore) Save(pair token.Pair) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.failSave != nil {
		return fs.failSave
	}
	data, err := pair.Encode()
	if err != nil {
		return err
	}
	fs.raw = data
	fs.present = true
	fs.saves++
	return nil
}

func (fs *FakeStore) Load() (*token.Pair, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if !fs.present {
		return nil, nil
	}
	pair, err := token.Decode(fs.raw)
	if err != nil {
		return nil, nil
	}
	return pair, nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.raw = nil
	fs.present = false
	fs.clears++
	return nil
}
