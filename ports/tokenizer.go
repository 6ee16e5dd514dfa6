package ports

import "github.com/KMA-JAVA-CARD/cardpoint/core"

// SessionTokenizer converts between in-process card sessions and the opaque
// reference tokens handed to the terminal front-end. Tokens carry only the
// session ID and card serial; the verified PIN never leaves the process.
type SessionTokenizer interface {
	// SessionToToken issues a signed reference token for a session.
	SessionToToken(session *core.CardSession) (string, error)

	// TokenToSessionRef verifies a token and returns the session ID and card
	// serial it names. The session itself may have expired since issuance.
	TokenToSessionRef(token string) (sessionID, cardSerial string, err error)
}
