package session

import (
	"context"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog"
)

// Profile is the user profile returned by the API
type Profile map[string]any

func (p Profile) clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Snapshot is a read-only copy of the session state.
// Profile is only ever set while Tokens is set.
type Snapshot struct {
	Tokens     *token.Pair
	Profile    Profile
	LastError  string
	Generation uint64 // bumped on every tokens assignment, including clearing
}

// Authenticated reports whether the session holds credentials
func (s Snapshot) Authenticated() bool {
	return s.Tokens != nil
}

// ProfileFetcher loads the profile for an access token
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, access string) (Profile, error)
}

// Fetch is the handle of one profile fetch, tagged with the token
// generation it was started for.
type Fetch struct {
	Generation uint64

	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Wait blocks until the fetch finishes or ctx is done. A fetch whose
// generation was superseded returns ErrSuperseded.
func (f *Fetch) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the fetch finishes
func (f *Fetch) Done() <-chan struct{} {
	return f.done
}

// Cancel stops the fetch. Its result, if any arrives, is discarded.
func (f *Fetch) Cancel() {
	f.cancel()
}

// State is the single in-memory copy of the session. Only the Manager
// mutates it.
type State struct {
	lock       sync.RWMutex
	tokens     *token.Pair
	profile    Profile
	lastError  string
	generation uint64
	inflight   *Fetch

	fetcher      ProfileFetcher
	fetchTimeout time.Duration
	logger       zerolog.Logger

	subscribers map[int]chan Snapshot
	nextSubID   int
}

func newState(fetcher ProfileFetcher, fetchTimeout time.Duration, logger zerolog.Logger) *State {
	return &State{
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		subscribers:  make(map[int]chan Snapshot),
	}
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives the newest snapshot after every
// change. Slow readers only ever see the latest snapshot. Call the returned
// func to unsubscribe.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.lock.Lock()
			defer s.lock.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// setTokens replaces the token pair, starts a new generation and, for a
// non-nil pair, exactly one profile fetch for it. The fetch of the previous
// generation is cancelled and its result will be discarded.
func (s *State) setTokens(pair *token.Pair) *Fetch {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}

	s.generation++
	s.profile = nil
	s.tokens = nil
	if pair != nil {
		cp := *pair
		s.tokens = &cp
	}

	var fetch *Fetch
	if s.tokens != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		fetch = &Fetch{Generation: s.generation, done: make(chan struct{}), cancel: cancel}
		s.inflight = fetch
		go s.runFetch(ctx, fetch, s.tokens.Access)
	}

	s.publishLocked()
	return fetch
}

// setProfile applies a profile fetched for generation gen. It is a no-op
// returning false when gen is no longer current or tokens are gone.
func (s *State) setProfile(gen uint64, profile Profile) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if gen != s.generation || s.tokens == nil {
		return false
	}
	s.profile = profile.clone()
	s.publishLocked()
	return true
}

func (s *State) setError(msg string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.lastError == msg {
		return
	}
	s.lastError = msg
	s.publishLocked()
}

// pending returns the in-flight fetch of the current generation, if any
func (s *State) pending() *Fetch {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.inflight
}

func (s *State) isCurrent(gen uint64) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return gen == s.generation
}

func (s *State) runFetch(ctx context.Context, f *Fetch, access string) {
	defer close(f.done)
	defer f.cancel()

	profile, err := s.fetcher.FetchProfile(ctx, access)
	if err != nil {
		if !s.isCurrent(f.Generation) {
			f.err = autherrors.ErrSuperseded
			return
		}
		s.clearInflight(f)
		s.logger.Warn().Err(err).Uint64("generation", f.Generation).Msg("Error fetching user profile")
		f.err = err
		return
	}

	if !s.setProfile(f.Generation, profile) {
		s.logger.Debug().Uint64("generation", f.Generation).Msg("Discarding profile of superseded generation")
		f.err = autherrors.ErrSuperseded
		return
	}
	s.clearInflight(f)
}

func (s *State) clearInflight(f *Fetch) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.inflight == f {
		s.inflight = nil
	}
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Profile:    s.profile.clone(),
		LastError:  s.lastError,
		Generation: s.generation,
	}
	if s.tokens != nil {
		cp := *s.tokens
		snap.Tokens = &cp
	}
	return snap
}

// publishLocked hands the current snapshot to every subscriber without
// blocking. Callers hold s.lock for writing.
func (s *State) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
