package core

import "time"

// CardSession is the ephemeral proof that a specific physical card has passed
// PIN verification and challenge-response in one flow. It lives only in
// process memory and is destroyed when the card is removed, the flow
// completes, the caller cancels, or the TTL elapses.
type CardSession struct {
	ID         string    // unique session identifier
	CardSerial string    // serial of the authenticated card
	PIN        string    // verified PIN, retained for PIN-gated card operations
	StartedAt  time.Time // when authentication completed
}

// Wipe clears the retained PIN. Called when the session is destroyed.
func (s *CardSession) Wipe() {
	s.PIN = ""
}

// ReconciledSession is a card session whose on-card balance has been brought
// into agreement with the ledger. Member carries the authoritative ledger
// record; CardPoints is the on-card snapshot taken before any sync and is
// only good for display.
type ReconciledSession struct {
	Session    *CardSession
	Member     *Member
	CardPoints int64
	Synced     bool // true when the reconcile run had to write the card
}
