package apiclient

// Remote API paths. Trailing slashes match the server's routing exactly.
const (
	// Token routes
	RouteJWTCreate  = "/auth/jwt/create/"
	RouteJWTRefresh = "/auth/jwt/refresh/"

	// Current user routes
	RouteMe          = "/auth/users/me"
	RouteMeUpdate    = "/auth/users/me/"
	RouteSetPassword = "/auth/users/set_password/"

	// Registration and activation
	RouteUsers            = "/auth/users/"
	RouteActivation       = "/auth/users/activation/"
	RouteResendActivation = "/auth/users/resend_activation/"

	// Password reset
	RouteResetPassword        = "/auth/users/reset_password/"
	RouteResetPasswordConfirm = "/auth/users/reset_password_confirm/"
)
