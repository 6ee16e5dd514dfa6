// Package tokenizer issues and verifies the session reference tokens handed
// to the terminal front-end.
package tokenizer

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// AudienceSession marks tokens that reference a live card session.
const AudienceSession = "card:session"

// JWTTokenizer implements SessionTokenizer with ES256 JWTs. Tokens name the
// session and card serial only; the verified PIN stays in process memory.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
}

// NewJWTTokenizer creates a tokenizer signing with the given key. Token
// expiry is an upper bound; the in-process session registry is the actual
// source of truth for session liveness.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, ttl time.Duration) ports.SessionTokenizer {
	return &JWTTokenizer{signKey: signKey, ttl: ttl}
}

// SessionToToken issues a signed reference token for a card session.
func (j *JWTTokenizer) SessionToToken(session *core.CardSession) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.CardSerial,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		CardSerial: session.CardSerial,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signedToken, nil
}

// TokenToSessionRef verifies a token and extracts the session reference.
func (j *JWTTokenizer) TokenToSessionRef(tokenStr string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		return "", "", fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", "", core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return "", "", core.ErrInvalidToken
	}
	return claims.ID, claims.CardSerial, nil
}
