package core

import "strings"

// CardStatus is the lifecycle state of a membership card.
type CardStatus string

const (
	// CardStatusBlank means no serial has been provisioned on the card yet.
	CardStatusBlank CardStatus = "BLANK"

	// CardStatusActive is a provisioned, usable card.
	CardStatusActive CardStatus = "ACTIVE"

	// CardStatusBlocked is reached only through PIN exhaustion and exited
	// only via the unblock/restore flow.
	CardStatusBlocked CardStatus = "BLOCKED"
)

// BlockedSerialSuffix is appended to the raw serial by the reader middleware
// when the card's PIN is exhausted. It is stripped before the serial is used.
const BlockedSerialSuffix = ".BLOCKED"

// Card represents a physical membership card as seen by the terminal.
type Card struct {
	Serial    string // stable hex identifier
	PublicKey string
	Status    CardStatus
}

// Presence classifies what is currently in the reader.
type Presence string

const (
	PresenceAbsent  Presence = "absent"
	PresenceBlank   Presence = "blank"
	PresenceBlocked Presence = "blocked"
	PresencePresent Presence = "present"
)

// CardPresence is the result of one detection pass. Serial is stripped of the
// blocked marker and empty when no card is inserted.
type CardPresence struct {
	Presence Presence `json:"presence"`
	Serial   string   `json:"serial,omitempty"`
}

// ClassifySerial maps the raw serial returned by the reader to a presence
// classification. An empty serial means no card, an all-zero serial means a
// blank (unprovisioned) card, and a serial carrying the blocked marker means
// a locked card.
func ClassifySerial(raw string) CardPresence {
	if raw == "" {
		return CardPresence{Presence: PresenceAbsent}
	}

	serial := raw
	blocked := false
	if strings.Contains(serial, BlockedSerialSuffix) {
		blocked = true
		serial = strings.ReplaceAll(serial, BlockedSerialSuffix, "")
	}

	if isAllZero(serial) {
		return CardPresence{Presence: PresenceBlank, Serial: serial}
	}

	if blocked {
		return CardPresence{Presence: PresenceBlocked, Serial: serial}
	}

	return CardPresence{Presence: PresencePresent, Serial: serial}
}

func isAllZero(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}
