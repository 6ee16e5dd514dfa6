package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPayload(t *testing.T) {
	ts := time.UnixMilli(1700000000123)

	assert.Equal(t, "EARN|250000|1700000000123", CanonicalPayload(TransactionEarn, 250000, ts))
	assert.Equal(t, "REDEEM|50|1700000000123", CanonicalPayload(TransactionRedeem, 50, ts))
}

func TestPayloadHex(t *testing.T) {
	// "A|1|2" byte by byte
	assert.Equal(t, "417c317c32", PayloadHex("A|1|2"))
}

func TestPointsForAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   int64
		points int64
	}{
		{"exact multiple", 250000, 1000, 250},
		{"remainder floors", 250999, 1000, 250},
		{"below one point", 999, 1000, 0},
		{"zero amount", 0, 1000, 0},
		{"zero rate yields nothing", 250000, 0, 0},
		{"negative rate yields nothing", 250000, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.points, PointsForAmount(tt.amount, tt.rate))
		})
	}
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionEarn.Valid())
	assert.True(t, TransactionRedeem.Valid())
	assert.False(t, TransactionType("TRANSFER").Valid())
	assert.False(t, TransactionType("").Valid())
}
