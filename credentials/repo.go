// Package credentials persists the current token pair across process restarts.
package credentials

import (
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the durable key holding the serialised token pair.
const DefaultKey = "authTokens"

// Store defines durable storage for the current token pair.
// All operations are synchronous.
type Store interface {
	// Save persists the pair, overwriting any prior value
	Save(pair token.Pair) error

	// Load returns the persisted pair, or nil when nothing is stored or the
	// stored value is malformed. An error is returned only for backend failures.
	Load() (*token.Pair, error)

	// Clear removes any persisted value. Clearing an empty store is not an error.
	Clear() error
}

// KeyForProfile namespaces the storage key per configuration profile so
// separate profiles on one machine never read each other's credentials.
func KeyForProfile(profile string) string {
	if profile == "" || profile == "default" {
		return DefaultKey
	}
	return DefaultKey + ":" + profile
}

// decodeOrAbsent maps malformed stored data to absence
func decodeOrAbsent(raw []byte) *token.Pair {
	if len(raw) == 0 {
		return nil
	}
	pair, err := token.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Discarding malformed stored credentials")
		return nil
	}
	return pair
}
