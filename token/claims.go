package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Claims is the subset of access token claims the client cares about.
// They are decoded without signature verification and are for display only.
type Claims struct {
	UserID    string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseClaims decodes the claims of a JWT access token without verifying it
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.ParseClaims] empty token")
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.ParseClaims] %s", err.Error())
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.ParseClaims] unexpected claims type")
	}

	claims := &Claims{
		UserID:    claimString(mapClaims, "user_id"),
		TokenType: claimString(mapClaims, "token_type"),
		JTI:       claimString(mapClaims, "jti"),
	}
	if claims.UserID == "" {
		claims.UserID = claimString(mapClaims, "sub")
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

// user_id is numeric on some backends and a string on others
func claimString(claims jwtlib.MapClaims, key string) string {
	v, ok := claims[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
