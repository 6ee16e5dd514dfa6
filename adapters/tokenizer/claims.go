package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the card serial. The JWT ID is
// the in-process session ID; the subject is the card serial.
type SessionClaims struct {
	jwt.RegisteredClaims
	CardSerial string `json:"srl"`
}
