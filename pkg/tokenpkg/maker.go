// Package tokenpkg verifies the access tokens that carry the caller's account identity.
package tokenpkg

import "time"

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific account and duration.
	CreateToken(accountID, role string, duration time.Duration) (string, *Payload, error)

	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Supported token types.
const (
	TypePaseto = "paseto"
	TypeJWT    = "jwt"
)

// NewMaker returns the Maker of the given type.
func NewMaker(tokenType, key string) (Maker, error) {
	if tokenType == TypeJWT {
		return NewJWTMaker(key)
	}

	return NewPasetoMaker(key)
}
