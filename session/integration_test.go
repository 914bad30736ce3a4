package session_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/apiclient/fakeapi"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/stretchr/testify/require"
)

const (
	janeEmail    = "jane@example.com"
	janePassword = "s3cure-pass"
)

type liveFixture struct {
	api    *fakeapi.Server
	client *apiclient.Client
	store  *credentials.FileStore
}

func setupLiveFixture(t *testing.T) *liveFixture {
	t.Helper()

	api := fakeapi.New(fakeapi.WithAccessTTL(time.Minute))
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	client, err := apiclient.New(server.URL)
	require.NoError(t, err)

	store, err := credentials.NewFileStore(t.TempDir(), credentials.DefaultKey)
	require.NoError(t, err)

	return &liveFixture{api: api, client: client, store: store}
}

func (f *liveFixture) newManager(t *testing.T, opts ...session.ManagerOption) *session.Manager {
	t.Helper()
	m, err := session.NewManager(f.client, f.store, opts...)
	require.NoError(t, err)
	return m
}

func TestLive_LoginSurvivesRestartUntilLogout(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, FirstName: "Jane", Active: true})
	ctx := context.Background()

	m := f.newManager(t)
	snap := m.Login(ctx, apiclient.Credentials{Identifier: janeEmail, Password: janePassword})
	require.Empty(t, snap.LastError)
	require.Equal(t, janeEmail, snap.Profile["email"])

	restarted := f.newManager(t)
	require.NoError(t, restarted.WaitProfile(ctx))
	require.Equal(t, snap.Tokens, restarted.Snapshot().Tokens)
	require.Equal(t, "Jane", restarted.Snapshot().Profile["first_name"])

	restarted.Logout()
	stored, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, stored)
	require.False(t, f.newManager(t).Snapshot().Authenticated())
}

func TestLive_LoginRejected(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, Active: true})

	snap := f.newManager(t).Login(context.Background(), apiclient.Credentials{Identifier: janeEmail, Password: "wrong"})
	require.False(t, snap.Authenticated())
	require.Equal(t, "No active account found with the given credentials", snap.LastError)
}

func TestLive_ProfileUpdateNeedsExplicitRefresh(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, FirstName: "Jane", Active: true})
	ctx := context.Background()

	m := f.newManager(t)
	m.Login(ctx, apiclient.Credentials{Identifier: janeEmail, Password: janePassword})

	require.True(t, m.UpdateUserProfile(ctx, map[string]any{"first_name": "Janet"}).Success)
	require.Equal(t, "Jane", m.Snapshot().Profile["first_name"])

	require.NoError(t, m.RefreshProfile(ctx))
	require.Equal(t, "Janet", m.Snapshot().Profile["first_name"])
}

func TestLive_ChangePasswordKeepsSession(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, Active: true})
	ctx := context.Background()

	m := f.newManager(t)
	before := m.Login(ctx, apiclient.Credentials{Identifier: janeEmail, Password: janePassword})

	res := m.ChangePassword(ctx, apiclient.SetPasswordRequest{CurrentPassword: "nope", NewPassword: "short"})
	require.False(t, res.Success)
	require.Equal(t, "Invalid password.\nThis password is too short. It must contain at least 8 characters.", res.Message)

	res = m.ChangePassword(ctx, apiclient.SetPasswordRequest{CurrentPassword: janePassword, NewPassword: "an0ther-pass"})
	require.True(t, res.Success)
	require.Equal(t, before.Tokens, m.Snapshot().Tokens)
	require.NoError(t, m.RefreshProfile(ctx))
}

func TestLive_RegisterAndActivate(t *testing.T) {
	f := setupLiveFixture(t)
	ctx := context.Background()
	m := f.newManager(t)

	res := m.Register(ctx, map[string]any{"email": "nope", "password": "password"})
	require.False(t, res.Success)
	require.Equal(t, "Enter a valid email address.\nThis password is too common.", res.Message)

	res = m.Register(ctx, map[string]any{"email": janeEmail, "password": janePassword, "first_name": "Jane"})
	require.True(t, res.Success)
	require.False(t, m.Snapshot().Authenticated())

	require.True(t, m.ResendActivation(ctx, janeEmail).Success)
	uid, tok, ok := f.api.ActivationLink(janeEmail)
	require.True(t, ok)
	require.True(t, m.Activate(ctx, apiclient.ActivationRequest{UID: uid, Token: tok}).Success)

	snap := m.Login(ctx, apiclient.Credentials{Identifier: janeEmail, Password: janePassword})
	require.True(t, snap.Authenticated())
}

func TestLive_ResetPasswordConfirmMismatch(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, Active: true})
	ctx := context.Background()
	m := f.newManager(t)

	require.True(t, m.ResetPassword(ctx, janeEmail).Success)
	uid, tok, ok := f.api.ResetLink(janeEmail)
	require.True(t, ok)

	res := m.ResetPasswordConfirm(ctx, apiclient.ResetPasswordConfirmRequest{
		UID: uid, Token: tok, NewPassword: "brand-new-pass", ReNewPassword: "other-new-pass",
	})
	require.False(t, res.Success)
	require.Equal(t, "The two password fields didn't match.", res.Message)
	require.Equal(t, res.Message, m.Snapshot().LastError)

	res = m.ResetPasswordConfirm(ctx, apiclient.ResetPasswordConfirmRequest{
		UID: uid, Token: tok, NewPassword: "brand-new-pass", ReNewPassword: "brand-new-pass",
	})
	require.True(t, res.Success)
	require.Empty(t, m.Snapshot().LastError)
}

func TestLive_RefreshAndExpiry(t *testing.T) {
	f := setupLiveFixture(t)
	f.api.AddUser(fakeapi.User{Email: janeEmail, Password: janePassword, Active: true})
	ctx := context.Background()

	later := time.Now().Add(time.Hour)
	m := f.newManager(t, session.WithNowTime(func() time.Time { return later }))
	before := m.Login(ctx, apiclient.Credentials{Identifier: janeEmail, Password: janePassword})
	require.True(t, m.AccessExpired())

	require.True(t, m.Refresh(ctx).Success)
	after := m.Snapshot()
	require.Equal(t, before.Tokens.Refresh, after.Tokens.Refresh)
	require.Greater(t, after.Generation, before.Generation)

	stored, err := f.store.Load()
	require.NoError(t, err)
	require.Equal(t, after.Tokens, stored)
}
