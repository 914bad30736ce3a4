package token

import (
	"encoding/json"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/pkg/errors"
)

var (
	// ErrMalformed is returned by Decode for unusable stored data
	ErrMalformed = autherrors.ErrMalformedCredentials
	// ErrInvalid is returned by ParseClaims for tokens that are not JWTs
	ErrInvalid = autherrors.ErrInvalidToken
)

// Pair is the access/refresh credential pair issued by /auth/jwt/create/.
// The JSON field names match both the API response and the persisted layout.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether the pair carries an access token
func (p Pair) Valid() bool {
	return strings.TrimSpace(p.Access) != ""
}

// Encode serialises the pair for a credential store
func (p Pair) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "[token.Pair.Encode] json.Marshal")
	}
	return data, nil
}

// AccessExpired reports whether the access token's exp claim is at or before now.
// Tokens that cannot be decoded, or that carry no exp claim, are not considered expired.
func (p Pair) AccessExpired(now time.Time) bool {
	claims, err := ParseClaims(p.Access)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}

// Decode parses a serialised pair. Malformed data, or a pair without an
// access token, yields ErrMalformedCredentials.
func Decode(data []byte) (*Pair, error) {
	var p Pair
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedCredentials, "[token.Decode] %s", err.Error())
	}
	if !p.Valid() {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedCredentials, "[token.Decode] missing access token")
	}
	return &p, nil
}
