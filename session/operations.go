package session

import (
	"context"

	"github.com/jrsteele09/go-auth-client/apiclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
)

// Result is the outcome of an operation. Message is also held in the
// snapshot's LastError when the operation failed.
type Result struct {
	Success bool
	Message string
}

// Login exchanges the credentials for a token pair, persists it and starts
// the profile fetch. On failure the server's detail message lands in
// LastError and the held tokens are left untouched. When logins overlap the
// last one to complete wins.
func (m *Manager) Login(ctx context.Context, creds apiclient.Credentials) Snapshot {
	m.state.setError("")

	callCtx, cancel := m.withTimeout(ctx)
	pair, err := m.api.CreateToken(callCtx, creds)
	cancel()
	if err != nil {
		m.logger.Warn().Err(err).Msg("Login failed")
		m.state.setError(m.loginFailureMessage(err))
		return m.state.Snapshot()
	}

	fetch := m.commitTokens(&pair)
	if fetch != nil {
		if err := fetch.Wait(ctx); err != nil && !autherrors.Is(err, ErrSuperseded) {
			m.logger.Debug().Err(err).Msg("Profile not available after login")
		}
	}
	return m.state.Snapshot()
}

// Logout drops the session and its stored credentials. It cannot fail.
func (m *Manager) Logout() {
	m.state.setError("")
	m.commitTokens(nil)
}

// Register creates an account pending activation. The session is never touched.
func (m *Manager) Register(ctx context.Context, fields map[string]any) Result {
	return m.run(ctx, m.messages.RegisterSuccess, m.messages.RegisterFailed, func(ctx context.Context) error {
		return m.api.RegisterUser(ctx, fields)
	})
}

// UpdateUserProfile sends a partial profile update. The held profile is not
// re-fetched; use RefreshProfile when it has to be current.
func (m *Manager) UpdateUserProfile(ctx context.Context, fields map[string]any) Result {
	return m.run(ctx, "", m.messages.Generic, func(ctx context.Context) error {
		return m.api.UpdateMe(ctx, m.accessToken(), fields)
	})
}

// ChangePassword sets a new password. The held tokens stay valid.
func (m *Manager) ChangePassword(ctx context.Context, req apiclient.SetPasswordRequest) Result {
	return m.run(ctx, "", m.messages.Generic, func(ctx context.Context) error {
		return m.api.SetPassword(ctx, m.accessToken(), req)
	})
}

// Activate confirms an account with the uid and token of the activation link
func (m *Manager) Activate(ctx context.Context, req apiclient.ActivationRequest) Result {
	return m.run(ctx, m.messages.ActivateSuccess, m.messages.ActivateFailed, func(ctx context.Context) error {
		return m.api.Activate(ctx, req)
	})
}

// ResendActivation asks the server to send the activation email again
func (m *Manager) ResendActivation(ctx context.Context, email string) Result {
	return m.run(ctx, m.messages.ResendActivationSuccess, m.messages.ResendActivationFailed, func(ctx context.Context) error {
		return m.api.ResendActivation(ctx, email)
	})
}

// ResetPassword requests a password reset email
func (m *Manager) ResetPassword(ctx context.Context, email string) Result {
	return m.run(ctx, m.messages.ResetPasswordSuccess, m.messages.ResetPasswordFailed, func(ctx context.Context) error {
		return m.api.ResetPassword(ctx, email)
	})
}

// ResetPasswordConfirm sets the new password with the uid and token of the reset link
func (m *Manager) ResetPasswordConfirm(ctx context.Context, req apiclient.ResetPasswordConfirmRequest) Result {
	return m.run(ctx, m.messages.ResetPasswordConfirmSuccess, m.messages.ResetPasswordConfirmFailed, func(ctx context.Context) error {
		return m.api.ResetPasswordConfirm(ctx, req)
	})
}

// Refresh swaps the access token using the refresh token. The refresh token
// is kept unless the server rotates it. Nothing calls this automatically.
func (m *Manager) Refresh(ctx context.Context) Result {
	m.state.setError("")

	snap := m.state.Snapshot()
	if snap.Tokens == nil || snap.Tokens.Refresh == "" {
		return m.fail(ErrNotLoggedIn, m.messages.RefreshFailed)
	}

	callCtx, cancel := m.withTimeout(ctx)
	refreshed, err := m.api.RefreshToken(callCtx, snap.Tokens.Refresh)
	cancel()
	if err != nil {
		return m.fail(err, m.messages.RefreshFailed)
	}

	pair := token.Pair{Access: refreshed.Access, Refresh: snap.Tokens.Refresh}
	if refreshed.Refresh != "" {
		pair.Refresh = refreshed.Refresh
	}
	if _, err := m.commitTokensIf(snap.Generation, &pair); err != nil {
		// a login or logout completed meanwhile and owns the session now
		return m.fail(err, m.messages.RefreshFailed)
	}
	return Result{Success: true}
}

// RefreshProfile re-fetches the profile for the held tokens and waits for it
func (m *Manager) RefreshProfile(ctx context.Context) error {
	snap := m.state.Snapshot()
	if snap.Tokens == nil {
		return ErrNotLoggedIn
	}

	callCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	profile, err := m.api.Me(callCtx, snap.Tokens.Access)
	if err != nil {
		return err
	}
	if !m.state.setProfile(snap.Generation, Profile(profile)) {
		return ErrSuperseded
	}
	return nil
}

func (m *Manager) run(ctx context.Context, successMsg, fallback string, call func(ctx context.Context) error) Result {
	m.state.setError("")

	callCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := call(callCtx); err != nil {
		return m.fail(err, fallback)
	}
	return Result{Success: true, Message: successMsg}
}

func (m *Manager) fail(err error, fallback string) Result {
	msg := aggregateMessage(err, fallback)
	m.logger.Warn().Err(err).Msg("Operation failed")
	m.state.setError(msg)
	return Result{Success: false, Message: msg}
}

// aggregateMessage joins every field message of a structured API error,
// falling back when there is none
func aggregateMessage(err error, fallback string) string {
	var apiErr *apiclient.Error
	if autherrors.As(err, &apiErr) && apiErr.Structured {
		if msg := apiErr.Aggregate(); msg != "" {
			return msg
		}
	}
	return fallback
}

func (m *Manager) loginFailureMessage(err error) string {
	var apiErr *apiclient.Error
	if autherrors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return m.messages.LoginFailed
}
