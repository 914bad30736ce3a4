package session_test

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/token"
)

var _ session.API = (*stubAPI)(nil)

// stubAPI answers every call from its function fields. Unset fields succeed
// with empty results.
type stubAPI struct {
	lock  sync.Mutex
	calls map[string]int

	createToken          func(ctx context.Context, creds apiclient.Credentials) (token.Pair, error)
	refreshToken         func(ctx context.Context, refresh string) (token.Pair, error)
	me                   func(ctx context.Context, access string) (map[string]any, error)
	updateMe             func(ctx context.Context, access string, fields map[string]any) error
	setPassword          func(ctx context.Context, access string, req apiclient.SetPasswordRequest) error
	registerUser         func(ctx context.Context, fields map[string]any) error
	activate             func(ctx context.Context, req apiclient.ActivationRequest) error
	resendActivation     func(ctx context.Context, email string) error
	resetPassword        func(ctx context.Context, email string) error
	resetPasswordConfirm func(ctx context.Context, req apiclient.ResetPasswordConfirmRequest) error
}

func newStubAPI() *stubAPI {
	return &stubAPI{calls: map[string]int{}}
}

func (s *stubAPI) count(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[name]++
}

func (s *stubAPI) Calls(name string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[name]
}

func (s *stubAPI) CreateToken(ctx context.Context, creds apiclient.Credentials) (token.Pair, error) {
	s.count("CreateToken")
	if s.createToken == nil {
		return token.Pair{Access: "access", Refresh: "refresh"}, nil
	}
	return s.createToken(ctx, creds)
}

func (s *stubAPI) RefreshToken(ctx context.Context, refresh string) (token.Pair, error) {
	s.count("RefreshToken")
	if s.refreshToken == nil {
		return token.Pair{Access: "refreshed"}, nil
	}
	return s.refreshToken(ctx, refresh)
}

func (s *stubAPI) Me(ctx context.Context, access string) (map[string]any, error) {
	s.count("Me")
	if s.me == nil {
		return map[string]any{"access": access}, nil
	}
	return s.me(ctx, access)
}

func (s *stubAPI) UpdateMe(ctx context.Context, access string, fields map[string]any) error {
	s.count("UpdateMe")
	if s.updateMe == nil {
		return nil
	}
	return s.updateMe(ctx, access, fields)
}

func (s *stubAPI) SetPassword(ctx context.Context, access string, req apiclient.SetPasswordRequest) error {
	s.count("SetPassword")
	if s.setPassword == nil {
		return nil
	}
	return s.setPassword(ctx, access, req)
}

func (s *stubAPI) RegisterUser(ctx context.Context, fields map[string]any) error {
	s.count("RegisterUser")
	if s.registerUser == nil {
		return nil
	}
	return s.registerUser(ctx, fields)
}

func (s *stubAPI) Activate(ctx context.Context, req apiclient.ActivationRequest) error {
	s.count("Activate")
	if s.activate == nil {
		return nil
	}
	return s.activate(ctx, req)
}

func (s *stubAPI) ResendActivation(ctx context.Context, email string) error {
	s.count("ResendActivation")
	if s.resendActivation == nil {
		return nil
	}
	return s.resendActivation(ctx, email)
}

func (s *stubAPI) ResetPassword(ctx context.Context, email string) error {
	s.count("ResetPassword")
	if s.resetPassword == nil {
		return nil
	}
	return s.resetPassword(ctx, email)
}

func (s *stubAPI) ResetPasswordConfirm(ctx context.Context, req apiclient.ResetPasswordConfirmRequest) error {
	s.count("ResetPasswordConfirm")
	if s.resetPasswordConfirm == nil {
		return nil
	}
	return s.resetPasswordConfirm(ctx, req)
}
