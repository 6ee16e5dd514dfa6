package service

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeReader is a scriptable ReaderGateway. PIN verdicts are popped from
// pinResults in order; an empty script accepts every PIN.
type fakeReader struct {
	mu sync.Mutex

	serial     string
	connectErr error
	serialErr  error

	pinResults []*core.PinResult
	pinsSeen   []string

	signature      string
	signErr        error
	signedPayloads []string

	secureRaw string
	secureErr error

	imageHex string
	imageErr error

	uploadErr      error
	uploadedImages []string

	updateInfoErr error
	infoWrites    []core.CardInfoWrite

	updatePointsErr error
	pointWrites     []int64

	changePinResult *core.PinResult
	changePinErr    error
	changePinCalls  int

	unblockResult *core.PinResult
	unblockErr    error

	provisioned *core.ProvisionedCard
	registerErr error
}

func (f *fakeReader) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeReader) CardSerial(ctx context.Context) (string, error) {
	return f.serial, f.serialErr
}

func (f *fakeReader) VerifyPin(ctx context.Context, pin string) (*core.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinsSeen = append(f.pinsSeen, pin)
	if len(f.pinResults) == 0 {
		return &core.PinResult{Success: true, StatusWord: core.StatusWordOK, RemainingTries: -1}, nil
	}
	result := f.pinResults[0]
	f.pinResults = f.pinResults[1:]
	return result, nil
}

func (f *fakeReader) SignChallenge(ctx context.Context, challengeHex string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signedPayloads = append(f.signedPayloads, challengeHex)
	return f.signature, nil
}

func (f *fakeReader) SecureInfo(ctx context.Context, pin string) (string, error) {
	return f.secureRaw, f.secureErr
}

func (f *fakeReader) ReadImage(ctx context.Context) (string, error) {
	return f.imageHex, f.imageErr
}

func (f *fakeReader) UploadImage(ctx context.Context, hexData string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedImages = append(f.uploadedImages, hexData)
	return nil
}

func (f *fakeReader) UpdateInfo(ctx context.Context, info core.CardInfoWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateInfoErr != nil {
		return f.updateInfoErr
	}
	f.infoWrites = append(f.infoWrites, info)
	return nil
}

func (f *fakeReader) UpdatePoints(ctx context.Context, points int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updatePointsErr != nil {
		return f.updatePointsErr
	}
	f.pointWrites = append(f.pointWrites, points)
	return nil
}

func (f *fakeReader) ChangePin(ctx context.Context, oldPin, newPin string) (*core.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changePinCalls++
	return f.changePinResult, f.changePinErr
}

func (f *fakeReader) UnblockPin(ctx context.Context) (*core.PinResult, error) {
	return f.unblockResult, f.unblockErr
}

func (f *fakeReader) Register(ctx context.Context, pin string) (*core.ProvisionedCard, error) {
	return f.provisioned, f.registerErr
}

// fakeLedger is a scriptable LedgerService. Challenges are popped from
// challenges in order.
type fakeLedger struct {
	mu sync.Mutex

	member    *core.Member
	memberErr error

	registered  *core.Member
	registerErr error
	regSerial   string
	regPubKey   string

	challenges   []string
	challengeErr error

	verifyErr   error
	verifyCalls int

	commitResult *core.TransactionResult
	commitErr    error
	commits      []core.TransactionRequest

	updateErr error
	updates   []core.MemberUpdate

	page   *core.TransactionPage
	pageErr error
}

func (f *fakeLedger) Member(ctx context.Context, cardSerial string) (*core.Member, error) {
	return f.member, f.memberErr
}

func (f *fakeLedger) RegisterMember(ctx context.Context, cardSerial, publicKey string, reg core.Registration) (*core.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.regSerial = cardSerial
	f.regPubKey = publicKey
	return f.registered, nil
}

func (f *fakeLedger) Challenge(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challengeErr != nil {
		return "", f.challengeErr
	}
	if len(f.challenges) == 0 {
		return "nonce-default", nil
	}
	nonce := f.challenges[0]
	f.challenges = f.challenges[1:]
	return nonce, nil
}

func (f *fakeLedger) VerifyChallenge(ctx context.Context, cardSerial, challenge, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeLedger) CommitTransaction(ctx context.Context, cardSerial string, req core.TransactionRequest) (*core.TransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	f.commits = append(f.commits, req)
	return f.commitResult, nil
}

func (f *fakeLedger) UpdateMember(ctx context.Context, cardSerial string, upd core.MemberUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeLedger) Transactions(ctx context.Context, filter core.TransactionFilter) (*core.TransactionPage, error) {
	return f.page, f.pageErr
}

type unblockedEvent struct {
	serial   string
	restored bool
}

// fakePublisher records every published event.
type fakePublisher struct {
	mu sync.Mutex

	txEvents  []*ports.TransactionEvent
	locked    []string
	unblocked []unblockedEvent
}

func (f *fakePublisher) PublishTransaction(ctx context.Context, event *ports.TransactionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txEvents = append(f.txEvents, event)
	return nil
}

func (f *fakePublisher) PublishCardLocked(ctx context.Context, cardSerial string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, cardSerial)
	return nil
}

func (f *fakePublisher) PublishCardUnblocked(ctx context.Context, cardSerial string, restored bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unblocked = append(f.unblocked, unblockedEvent{serial: cardSerial, restored: restored})
	return nil
}
