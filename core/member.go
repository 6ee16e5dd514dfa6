package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Member is the ledger's durable record for a card.
type Member struct {
	ID           int64      `json:"id"`
	CardSerial   string     `json:"cardSerial"`
	PublicKey    string     `json:"publicKey"`
	PointBalance int64      `json:"pointBalance"`
	Status       CardStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	User         MemberUser `json:"user"`
}

// MemberUser is the personal profile nested inside a member record.
type MemberUser struct {
	ID        int64      `json:"id"`
	FullName  string     `json:"fullName"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email,omitempty"`
	Address   string     `json:"address,omitempty"`
	DOB       *time.Time `json:"dob,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
}

// Registration is the input for issuing a new card and member record.
type Registration struct {
	PIN      string
	FullName string
	Phone    string
	Email    string
	Address  string
	DOB      string // ISO yyyy-MM-dd, optional
	Avatar   []byte // raw photo bytes for the ledger, optional
	AvatarIx string // image hex for the card, optional
}

// MemberUpdate carries profile fields to change. Empty fields are left as-is.
type MemberUpdate struct {
	FullName string
	Phone    string
	Email    string
	Address  string
	DOB      string // ISO yyyy-MM-dd
	Avatar   []byte
	AvatarIx string
}

// SecureInfo is the PIN-gated personal record held on the card, including the
// on-card points snapshot.
type SecureInfo struct {
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Points   int64  `json:"points"`
}

const secureInfoFields = 5

// ParseSecureInfo decodes the pipe-delimited record returned by the card's
// secure read: "fullName|dob|address|phone|points".
func ParseSecureInfo(raw string) (*SecureInfo, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < secureInfoFields {
		return nil, fmt.Errorf("malformed secure record: got %d fields, want %d", len(parts), secureInfoFields)
	}

	points, err := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed point count %q: %w", parts[4], err)
	}

	return &SecureInfo{
		FullName: parts[0],
		DOB:      parts[1],
		Address:  parts[2],
		Phone:    parts[3],
		Points:   points,
	}, nil
}

// CardInfo is what the terminal shows after an authenticated card read.
type CardInfo struct {
	Secure   *SecureInfo `json:"secure"`
	ImageHex string      `json:"imageHex,omitempty"`
}

// ProvisionedCard is the reader's response to provisioning a blank card: the
// newly assigned serial plus the card's generated key material.
type ProvisionedCard struct {
	CardID    string `json:"cardId"`
	PublicKey string `json:"publicKey"`
	Modulus   string `json:"modulus"`
	Exponent  string `json:"exponent"`
}

// CardInfoWrite is the personal record written onto the card, keyed to the
// PIN that authorizes the write.
type CardInfoWrite struct {
	PIN      string `json:"pin"`
	FullName string `json:"fullName"`
	DOB      string `json:"dob"` // ISO yyyy-MM-dd
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}
