package main

import (
	"fmt"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	var email, firstName, lastName string
	var extra map[string]string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account. It stays inactive until activated from the email link.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())

			addr, err := a.valueOrPrompt(email, "Email: ")
			if err != nil {
				return err
			}
			password, again, err := a.readNewSecret("Password: ")
			if err != nil {
				return err
			}
			if password != again {
				return errPasswordsDiffer
			}

			fields := map[string]any{}
			for k, v := range extra {
				fields[k] = v
			}
			fields["email"] = addr
			fields["password"] = password
			if firstName != "" {
				fields["first_name"] = firstName
			}
			if lastName != "" {
				fields["last_name"] = lastName
			}

			return a.report(m.Register(cmd.Context(), fields), "")
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringToStringVar(&extra, "field", nil, "additional registration field as key=value (repeatable)")
	return cmd
}

func newActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <uid> <token>",
		Short: "Activate an account with the uid and token from the activation link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			return a.report(m.Activate(cmd.Context(), apiclient.ActivationRequest{UID: args[0], Token: args[1]}), "")
		},
	}
}

func newResendActivationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resend-activation <email>",
		Short: "Send the activation email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			return a.report(m.ResendActivation(cmd.Context(), args[0]), "")
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Email a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			return a.report(m.ResetPassword(cmd.Context(), args[0]), "")
		},
	}
}

func newResetPasswordConfirmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password-confirm <uid> <token>",
		Short: "Set a new password with the uid and token from the reset link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			password, again, err := a.readNewSecret("New password: ")
			if err != nil {
				return err
			}
			res := m.ResetPasswordConfirm(cmd.Context(), apiclient.ResetPasswordConfirmRequest{
				UID:           args[0],
				Token:         args[1],
				NewPassword:   password,
				ReNewPassword: again,
			})
			return a.report(res, "")
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			if !m.Snapshot().Authenticated() {
				return session.ErrNotLoggedIn
			}
			current, err := a.readSecret("Current password: ")
			if err != nil {
				return err
			}
			password, again, err := a.readNewSecret("New password: ")
			if err != nil {
				return err
			}
			res := m.ChangePassword(cmd.Context(), apiclient.SetPasswordRequest{
				CurrentPassword: current,
				NewPassword:     password,
				ReNewPassword:   again,
			})
			return a.report(res, "Password changed")
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the profile of the logged in user",
	}

	var set map[string]string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := session.MustFromContext(cmd.Context())
			if !m.Snapshot().Authenticated() {
				return session.ErrNotLoggedIn
			}
			if len(set) == 0 {
				return fmt.Errorf("nothing to update, pass --set key=value")
			}
			fields := make(map[string]any, len(set))
			for k, v := range set {
				fields[k] = v
			}
			return a.report(m.UpdateUserProfile(cmd.Context(), fields), "Profile updated")
		},
	}
	update.Flags().StringToStringVar(&set, "set", nil, "profile field as key=value (repeatable)")

	cmd.AddCommand(update)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noSessionAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			displayAppname(a.out, appName)
			fmt.Fprintf(a.out, "%s version %s (commit: %s)\n", appName, version, commit)
		},
	}
}
