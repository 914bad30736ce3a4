package session

// Messages are the user-facing texts the operations report
type Messages struct {
	LoginFailed string

	RegisterSuccess string
	RegisterFailed  string

	ActivateSuccess string
	ActivateFailed  string

	ResendActivationSuccess string
	ResendActivationFailed  string

	ResetPasswordSuccess string
	ResetPasswordFailed  string

	ResetPasswordConfirmSuccess string
	ResetPasswordConfirmFailed  string

	RefreshFailed string

	// Generic is used by operations without a dedicated failure message
	Generic string
}

// DefaultMessages returns the stock messages
func DefaultMessages() Messages {
	return Messages{
		LoginFailed:                 "Login failed! Try again",
		RegisterSuccess:             "Registration successful. Check your email to activate your account.",
		RegisterFailed:              "Registration Failed! Try Again",
		ActivateSuccess:             "Account activated. You can now login.",
		ActivateFailed:              "Failed to activate account. Please try again.",
		ResendActivationSuccess:     "Activation email sent successfully. Please check your inbox.",
		ResendActivationFailed:      "Failed to send activation email. Please try again.",
		ResetPasswordSuccess:        "Password reset email sent successfully. Please check your inbox.",
		ResetPasswordFailed:         "Failed to send password reset email. Please try again.",
		ResetPasswordConfirmSuccess: "Password reset successfully. You can now login with your new password.",
		ResetPasswordConfirmFailed:  "Failed to reset password. Please try again.",
		RefreshFailed:               "Session expired. Please login again.",
		Generic:                     "Something Went Wrong! Try Again",
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.LoginFailed, d.LoginFailed)
	fill(&m.RegisterSuccess, d.RegisterSuccess)
	fill(&m.RegisterFailed, d.RegisterFailed)
	fill(&m.ActivateSuccess, d.ActivateSuccess)
	fill(&m.ActivateFailed, d.ActivateFailed)
	fill(&m.ResendActivationSuccess, d.ResendActivationSuccess)
	fill(&m.ResendActivationFailed, d.ResendActivationFailed)
	fill(&m.ResetPasswordSuccess, d.ResetPasswordSuccess)
	fill(&m.ResetPasswordFailed, d.ResetPasswordFailed)
	fill(&m.ResetPasswordConfirmSuccess, d.ResetPasswordConfirmSuccess)
	fill(&m.ResetPasswordConfirmFailed, d.ResetPasswordConfirmFailed)
	fill(&m.RefreshFailed, d.RefreshFailed)
	fill(&m.Generic, d.Generic)
	return m
}
