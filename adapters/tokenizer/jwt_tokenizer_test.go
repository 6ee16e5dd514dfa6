package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(testKey(t), 5*time.Minute)
	session := &core.CardSession{
		ID:         "c69d1c86-1f13-4a54-8b2f-000000000001",
		CardSerial: "00A1B2C3",
		PIN:        "123456",
		StartedAt:  time.Now(),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sessionID, cardSerial, err := tk.TokenToSessionRef(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sessionID)
	assert.Equal(t, session.CardSerial, cardSerial)

	// The PIN never appears in the token.
	assert.NotContains(t, token, "123456")
}

func TestTokenRejectedAcrossKeys(t *testing.T) {
	issuer := NewJWTTokenizer(testKey(t), 5*time.Minute)
	verifier := NewJWTTokenizer(testKey(t), 5*time.Minute)

	token, err := issuer.SessionToToken(&core.CardSession{ID: "s1", CardSerial: "00A1B2C3"})
	require.NoError(t, err)

	_, _, err = verifier.TokenToSessionRef(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer(testKey(t), -time.Minute)

	token, err := tk.SessionToToken(&core.CardSession{ID: "s1", CardSerial: "00A1B2C3"})
	require.NoError(t, err)

	_, _, err = tk.TokenToSessionRef(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer(testKey(t), 5*time.Minute)

	_, _, err := tk.TokenToSessionRef("not.a.token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
