package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, identifierField string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())

			identifier, err := a.valueOrPrompt(email, "Email: ")
			if err != nil {
				return err
			}
			password, err := a.readSecret("Password: ")
			if err != nil {
				return err
			}

			snap := m.Login(cmd.Context(), apiclient.Credentials{
				IdentifierField: identifierField,
				Identifier:      identifier,
				Password:        password,
			})
			if !snap.Authenticated() || snap.LastError != "" {
				return errors.New(snap.LastError)
			}

			name := identifier
			if e, ok := snap.Profile["email"].(string); ok && e != "" {
				name = e
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&identifierField, "identifier-field", "email", "login field name expected by the API")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			session.MustFromContext(cmd.Context()).Logout()
			fmt.Fprintln(a.out, "Logged out")
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored and when its access token expires",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			m := session.MustFromContext(cmd.Context())
			snap := m.Snapshot()
			if !snap.Authenticated() {
				fmt.Fprintln(a.out, "Not logged in")
				return
			}

			fmt.Fprintf(a.out, "Logged in (profile %s)\n", a.cfg.GetProfile())
			claims, err := token.ParseClaims(snap.Tokens.Access)
			if err != nil {
				fmt.Fprintln(a.out, "Access token: opaque")
				return
			}
			if claims.UserID != "" {
				fmt.Fprintf(a.out, "User ID: %s\n", claims.UserID)
			}
			if !claims.ExpiresAt.IsZero() {
				state := "valid"
				if m.AccessExpired() {
					state = "expired, run 'shopctl refresh' or log in again"
				}
				fmt.Fprintf(a.out, "Access token expires: %s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC1123), state)
			}
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the profile of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			if !m.Snapshot().Authenticated() {
				return session.ErrNotLoggedIn
			}
			if err := m.WaitProfile(cmd.Context()); err != nil && !errors.Is(err, session.ErrSuperseded) {
				return err
			}

			profile := m.Snapshot().Profile
			if profile == nil {
				if err := m.RefreshProfile(cmd.Context()); err != nil {
					return fmt.Errorf("fetch profile: %w", err)
				}
				profile = m.Snapshot().Profile
			}

			out, err := yaml.Marshal(map[string]any(profile))
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Get a new access token with the stored refresh token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := session.MustFromContext(cmd.Context()).Refresh(cmd.Context())
			return a.report(res, "Access token refreshed")
		},
	}
}

// report prints a successful result, or turns a failed one into an error
func (a *app) report(res session.Result, fallback string) error {
	if !res.Success {
		return errors.New(res.Message)
	}
	msg := res.Message
	if msg == "" {
		msg = fallback
	}
	fmt.Fprintln(a.out, msg)
	return nil
}
