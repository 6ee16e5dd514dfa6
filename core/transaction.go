package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes earning points from redeeming them.
type TransactionType string

const (
	TransactionEarn   TransactionType = "EARN"
	TransactionRedeem TransactionType = "REDEEM"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionEarn || t == TransactionRedeem
}

// TransactionRequest is the commit payload submitted to the ledger. The
// signature covers the canonical payload, not this struct.
type TransactionRequest struct {
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	Timestamp   string          `json:"timestamp"` // Unix milliseconds, as issued at commit time
	Signature   string          `json:"signature"` // card signature over the canonical payload, hex
	Description string          `json:"description"`
}

// TransactionResult is the ledger's commit response. NewBalance is
// authoritative; the terminal's own point math is only a preview.
type TransactionResult struct {
	TransactionID int64 `json:"transactionId"`
	PointChange   int64 `json:"pointChange"`
	NewBalance    int64 `json:"newBalance"`
}

// TransactionRecord is one row of the ledger's transaction history.
type TransactionRecord struct {
	ID          int64           `json:"id"`
	CardSerial  string          `json:"cardSerial"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	PointChange int64           `json:"pointChange"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	CardSerial string
	Type       TransactionType
	Page       int
	Limit      int
}

// TransactionPage is one page of listed transactions.
type TransactionPage struct {
	Items []TransactionRecord `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// CanonicalPayload builds the signed transaction payload: "type|amount|timestamp"
// with the timestamp in Unix milliseconds.
func CanonicalPayload(t TransactionType, amount int64, ts time.Time) string {
	return fmt.Sprintf("%s|%d|%d", t, amount, ts.UnixMilli())
}

// PayloadHex hex-encodes a canonical payload for the card's signing command,
// which accepts hex input only.
func PayloadHex(payload string) string {
	return hex.EncodeToString([]byte(payload))
}

// PointsForAmount derives the point delta from a currency amount at the given
// conversion rate, floored. The ledger performs the same computation and its
// result wins on any disagreement.
func PointsForAmount(amount, rate int64) int64 {
	if rate <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Div(decimal.NewFromInt(rate)).
		Floor().
		IntPart()
}
