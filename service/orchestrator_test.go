package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
)

const testRate = 1000

func newOrchestratorFixture(reader *fakeReader, ledger *fakeLedger, events *fakePublisher, balance int64) (*TransactionOrchestrator, *core.ReconciledSession) {
	sessions := NewSessionRegistry(5 * time.Minute)
	session := sessions.Create("00A1B2C3", "123456")
	rs := &core.ReconciledSession{
		Session: session,
		Member:  &core.Member{CardSerial: "00A1B2C3", PointBalance: balance},
	}
	o := NewTransactionOrchestrator(reader, ledger, sessions, events, testRate, testLogger())
	return o, rs
}

func TestCommitEarn(t *testing.T) {
	reader := &fakeReader{signature: "cafe01"}
	ledger := &fakeLedger{
		commitResult: &core.TransactionResult{TransactionID: 7, PointChange: 250, NewBalance: 1250},
	}
	events := &fakePublisher{}
	o, rs := newOrchestratorFixture(reader, ledger, events, 1000)

	result, err := o.Commit(context.Background(), rs, core.TransactionEarn, 250000, "groceries")
	require.NoError(t, err)

	assert.Equal(t, int64(250), result.PointChange)
	assert.Equal(t, int64(1250), result.NewBalance)

	// The card signed the canonical payload in hex form.
	require.Len(t, reader.signedPayloads, 1)
	decoded, err := hex.DecodeString(reader.signedPayloads[0])
	require.NoError(t, err)
	parts := strings.Split(string(decoded), "|")
	require.Len(t, parts, 3)
	assert.Equal(t, "EARN", parts[0])
	assert.Equal(t, "250000", parts[1])

	// The commit carried the signature over that payload and the same
	// millisecond timestamp.
	require.Len(t, ledger.commits, 1)
	req := ledger.commits[0]
	assert.Equal(t, core.TransactionEarn, req.Type)
	assert.Equal(t, int64(250000), req.Amount)
	assert.Equal(t, "cafe01", req.Signature)
	assert.Equal(t, parts[2], req.Timestamp)
	millis, err := strconv.ParseInt(req.Timestamp, 10, 64)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), time.UnixMilli(millis), time.Minute)

	// The ledger's new balance was pushed to the card and the event says so.
	assert.Equal(t, []int64{1250}, reader.pointWrites)
	require.Len(t, events.txEvents, 1)
	assert.True(t, events.txEvents[0].CardUpdated)
	assert.Equal(t, int64(1250), events.txEvents[0].Result.NewBalance)
}

func TestCommitRedeemInsufficientPoints(t *testing.T) {
	reader := &fakeReader{signature: "cafe01"}
	ledger := &fakeLedger{}
	o, rs := newOrchestratorFixture(reader, ledger, &fakePublisher{}, 100)

	// 500000 at rate 1000 requires 500 points against a balance of 100.
	_, err := o.Commit(context.Background(), rs, core.TransactionRedeem, 500000, "")
	assert.ErrorIs(t, err, core.ErrInsufficientPoints)

	// Rejected before any card or ledger interaction.
	assert.Empty(t, reader.signedPayloads)
	assert.Empty(t, ledger.commits)
	assert.Empty(t, reader.pointWrites)
}

func TestCommitRedeemSpendsLedgerBalance(t *testing.T) {
	reader := &fakeReader{signature: "cafe01"}
	ledger := &fakeLedger{
		commitResult: &core.TransactionResult{TransactionID: 8, PointChange: -250, NewBalance: 750},
	}
	events := &fakePublisher{}
	o, rs := newOrchestratorFixture(reader, ledger, events, 1000)

	result, err := o.Commit(context.Background(), rs, core.TransactionRedeem, 250000, "")
	require.NoError(t, err)
	assert.Equal(t, int64(750), result.NewBalance)
	assert.Equal(t, []int64{750}, reader.pointWrites)
}

func TestCommitCardWriteFailureIsPartial(t *testing.T) {
	reader := &fakeReader{
		signature:       "cafe01",
		updatePointsErr: errors.New("card pulled"),
	}
	ledger := &fakeLedger{
		commitResult: &core.TransactionResult{TransactionID: 9, PointChange: 250, NewBalance: 1250},
	}
	events := &fakePublisher{}
	o, rs := newOrchestratorFixture(reader, ledger, events, 1000)

	result, err := o.Commit(context.Background(), rs, core.TransactionEarn, 250000, "")

	// The transaction is final; the caller gets both the committed result
	// and the inconsistency signal.
	var partial *core.PartialInconsistencyError
	require.ErrorAs(t, err, &partial)
	require.NotNil(t, result)
	assert.Equal(t, int64(9), partial.Result.TransactionID)
	assert.Equal(t, result, partial.Result)

	require.Len(t, events.txEvents, 1)
	assert.False(t, events.txEvents[0].CardUpdated)
}

func TestCommitSignFailureCancelsSession(t *testing.T) {
	reader := &fakeReader{signErr: errors.New("card removed")}
	ledger := &fakeLedger{}
	sessions := NewSessionRegistry(5 * time.Minute)
	session := sessions.Create("00A1B2C3", "123456")
	rs := &core.ReconciledSession{
		Session: session,
		Member:  &core.Member{CardSerial: "00A1B2C3", PointBalance: 1000},
	}
	o := NewTransactionOrchestrator(reader, ledger, sessions, &fakePublisher{}, testRate, testLogger())

	_, err := o.Commit(context.Background(), rs, core.TransactionEarn, 1000, "")
	assert.ErrorIs(t, err, core.ErrSessionExpired)
	assert.Empty(t, ledger.commits)

	_, err = sessions.Resolve(session.ID)
	assert.ErrorIs(t, err, core.ErrSessionExpired)
}

func TestCommitInputValidation(t *testing.T) {
	o, rs := newOrchestratorFixture(&fakeReader{}, &fakeLedger{}, &fakePublisher{}, 1000)

	_, err := o.Commit(context.Background(), rs, core.TransactionType("TRANSFER"), 1000, "")
	assert.Error(t, err)

	_, err = o.Commit(context.Background(), rs, core.TransactionEarn, 0, "")
	assert.Error(t, err)

	_, err = o.Commit(context.Background(), rs, core.TransactionEarn, -5, "")
	assert.Error(t, err)
}

func TestPointsPreview(t *testing.T) {
	o, _ := newOrchestratorFixture(&fakeReader{}, &fakeLedger{}, &fakePublisher{}, 0)

	assert.Equal(t, int64(250), o.PointsPreview(250000))
	assert.Equal(t, int64(0), o.PointsPreview(999))
}
