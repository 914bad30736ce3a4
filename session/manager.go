// Package session owns the client-side authentication session: the current
// token pair, the profile derived from it, and the operations that change them.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/credentials"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 15 * time.Second

var (
	// ErrNotProvisioned is returned when no Manager has been provided
	ErrNotProvisioned = autherrors.ErrNotProvisioned
	// ErrSuperseded is returned by a profile fetch whose tokens were replaced
	ErrSuperseded = autherrors.ErrSuperseded
	// ErrNotLoggedIn is returned by operations that need a session when there is none
	ErrNotLoggedIn = autherrors.ErrNotLoggedIn
)

// API is the remote authentication API the Manager drives
type API interface {
	CreateToken(ctx context.Context, creds apiclient.Credentials) (token.Pair, error)
	RefreshToken(ctx context.Context, refresh string) (token.Pair, error)
	Me(ctx context.Context, access string) (map[string]any, error)
	UpdateMe(ctx context.Context, access string, fields map[string]any) error
	SetPassword(ctx context.Context, access string, req apiclient.SetPasswordRequest) error
	RegisterUser(ctx context.Context, fields map[string]any) error
	Activate(ctx context.Context, req apiclient.ActivationRequest) error
	ResendActivation(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email string) error
	ResetPasswordConfirm(ctx context.Context, req apiclient.ResetPasswordConfirmRequest) error
}

var _ API = (*apiclient.Client)(nil)

// Manager runs the auth operations against the API and keeps the State and
// the credential store in step.
type Manager struct {
	api   API
	store credentials.Store
	state *State

	// commitLock serialises token commits so the store and memory always
	// agree on the last writer
	commitLock sync.Mutex

	requestTimeout time.Duration
	messages       Messages
	nowTime        func() time.Time
	logger         zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRequestTimeout bounds every remote call, including profile fetches
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithMessages overrides the user-facing messages. Empty fields keep their defaults.
func WithMessages(msgs Messages) ManagerOption {
	return func(m *Manager) {
		m.messages = msgs.withDefaults()
	}
}

// NewManager creates the Manager and hydrates the session from the store.
// Stored tokens trigger a profile fetch in the background.
func NewManager(api API, store credentials.Store, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}

	m := &Manager{
		api:            api,
		store:          store,
		requestTimeout: defaultRequestTimeout,
		messages:       DefaultMessages(),
		nowTime:        time.Now,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}

	m.state = newState(apiProfileFetcher{api: api}, m.requestTimeout, m.logger)
	m.hydrate()
	return m, nil
}

// Snapshot returns the current session state
func (m *Manager) Snapshot() Snapshot {
	return m.state.Snapshot()
}

// Subscribe streams snapshots after every state change
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	return m.state.Subscribe()
}

// WaitProfile waits for the in-flight profile fetch, if any
func (m *Manager) WaitProfile(ctx context.Context) error {
	f := m.state.pending()
	if f == nil {
		return nil
	}
	return f.Wait(ctx)
}

// AccessExpired reports whether the held access token's exp claim has passed.
// Expiry is only ever detected, never acted on.
func (m *Manager) AccessExpired() bool {
	snap := m.state.Snapshot()
	return snap.Tokens != nil && snap.Tokens.AccessExpired(m.nowTime())
}

func (m *Manager) hydrate() {
	pair, err := m.store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to load stored credentials, starting logged out")
		return
	}
	if pair == nil {
		return
	}
	m.state.setTokens(pair)
}

// commitTokens persists pair (nil clears) and assigns it in memory.
// Store failures are logged; the in-memory session stays authoritative.
func (m *Manager) commitTokens(pair *token.Pair) *Fetch {
	m.commitLock.Lock()
	defer m.commitLock.Unlock()
	return m.commitTokensLocked(pair)
}

// commitTokensIf commits only while generation gen is still current
func (m *Manager) commitTokensIf(gen uint64, pair *token.Pair) (*Fetch, error) {
	m.commitLock.Lock()
	defer m.commitLock.Unlock()
	if !m.state.isCurrent(gen) {
		return nil, autherrors.ErrSuperseded
	}
	return m.commitTokensLocked(pair), nil
}

func (m *Manager) commitTokensLocked(pair *token.Pair) *Fetch {
	if pair == nil {
		if err := m.store.Clear(); err != nil {
			m.logger.Error().Err(err).Msg("Failed to clear stored credentials")
		}
	} else if err := m.store.Save(*pair); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist credentials")
	}
	return m.state.setTokens(pair)
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.requestTimeout)
}

func (m *Manager) accessToken() string {
	snap := m.state.Snapshot()
	if snap.Tokens == nil {
		return ""
	}
	return snap.Tokens.Access
}

type apiProfileFetcher struct {
	api API
}

func (f apiProfileFetcher) FetchProfile(ctx context.Context, access string) (Profile, error) {
	profile, err := f.api.Me(ctx, access)
	if err != nil {
		return nil, err
	}
	return Profile(profile), nil
}
