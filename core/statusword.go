package core

import "strings"

// Status words returned by the reader for PIN-class operations.
const (
	StatusWordOK     = "9000"
	StatusWordLocked = "6983"

	// statusWordTriesPrefix precedes the remaining-attempt count, e.g. "63c2".
	statusWordTriesPrefix = "63c"
)

// PinVerdict is the classification of a PIN-class reader response.
type PinVerdict int

const (
	// PinOK means the PIN was accepted.
	PinOK PinVerdict = iota

	// PinWrong means the PIN was rejected and attempts remain.
	PinWrong

	// PinLocked means the card no longer accepts PIN submissions.
	PinLocked

	// PinFailed is any other outcome. No attempt was consumed.
	PinFailed
)

// PinResult is the raw reader response for verify-pin, change-pin and
// unblock-pin operations.
type PinResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RemainingTries int    `json:"remainingTries"` // -1 when not applicable
	StatusWord     string `json:"sw"`
}

// Verdict classifies the result per the reader's status-word contract:
// 9000 = success, 6983 or zero remaining tries = locked, 63cN = wrong PIN
// with N attempts left, anything else = generic failure.
func (r *PinResult) Verdict() PinVerdict {
	sw := strings.ToLower(r.StatusWord)

	switch {
	case sw == strings.ToLower(StatusWordOK) && r.Success:
		return PinOK
	case sw == strings.ToLower(StatusWordLocked) || r.RemainingTries == 0:
		return PinLocked
	case !r.Success && strings.HasPrefix(sw, statusWordTriesPrefix):
		return PinWrong
	default:
		return PinFailed
	}
}
