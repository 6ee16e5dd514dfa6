package core

// AuthState names a position in the authentication state machine.
type AuthState string

const (
	StateIdle              AuthState = "idle"
	StateDetecting         AuthState = "detecting"
	StateCardAbsent        AuthState = "card_absent"
	StateCardBlank         AuthState = "card_blank"
	StateCardBlocked       AuthState = "card_blocked"
	StateCardPresent       AuthState = "card_present"
	StateAwaitingPin       AuthState = "awaiting_pin"
	StatePinVerified       AuthState = "pin_verified"
	StateAwaitingChallenge AuthState = "awaiting_challenge"
	StateAuthenticated     AuthState = "authenticated"
	StateLocked            AuthState = "locked"
)

// Terminal reports whether the flow cannot progress from this state without
// outside intervention (a new card, or an unblock for StateLocked).
func (s AuthState) Terminal() bool {
	switch s {
	case StateCardAbsent, StateCardBlank, StateCardBlocked, StateAuthenticated, StateLocked:
		return true
	}
	return false
}
