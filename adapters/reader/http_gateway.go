// Package reader implements the ReaderGateway port against the card reader
// HTTP middleware.
package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// HTTPGateway talks to the reader middleware over HTTP. One physical reader,
// one card, one operation at a time: every call holds the gateway mutex for
// its full round-trip.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry

	mu sync.Mutex
}

// NewHTTPGateway creates a gateway for the middleware at baseURL.
func NewHTTPGateway(baseURL string, timeout time.Duration, log *logrus.Logger) ports.ReaderGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithField("component", "reader"),
	}
}

// resultResponse is the middleware's generic single-value envelope.
type resultResponse struct {
	Result string `json:"result"`
}

func (g *HTTPGateway) Connect(ctx context.Context) error {
	var out resultResponse
	if err := g.get(ctx, "/connect", &out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrReaderUnavailable, err)
	}
	return nil
}

func (g *HTTPGateway) CardSerial(ctx context.Context) (string, error) {
	var out resultResponse
	if err := g.get(ctx, "/card-id", &out); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrReaderUnavailable, err)
	}
	return out.Result, nil
}

func (g *HTTPGateway) VerifyPin(ctx context.Context, pin string) (*core.PinResult, error) {
	var out core.PinResult
	if err := g.post(ctx, "/verify-pin", map[string]string{"pin": pin}, &out); err != nil {
		return nil, fmt.Errorf("verify pin: %w", err)
	}
	g.log.WithFields(logrus.Fields{"sw": out.StatusWord, "remaining": out.RemainingTries}).
		Debug("pin verification response")
	return &out, nil
}

func (g *HTTPGateway) SignChallenge(ctx context.Context, challengeHex string) (string, error) {
	var out resultResponse
	if err := g.post(ctx, "/sign-challenge", map[string]string{"challenge": challengeHex}, &out); err != nil {
		return "", fmt.Errorf("sign challenge: %w", err)
	}
	return out.Result, nil
}

func (g *HTTPGateway) SecureInfo(ctx context.Context, pin string) (string, error) {
	var out resultResponse
	if err := g.post(ctx, "/get-info-secure", map[string]string{"pin": pin}, &out); err != nil {
		return "", fmt.Errorf("secure read: %w", err)
	}
	return out.Result, nil
}

func (g *HTTPGateway) ReadImage(ctx context.Context) (string, error) {
	var out resultResponse
	if err := g.get(ctx, "/read-image", &out); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return out.Result, nil
}

func (g *HTTPGateway) UploadImage(ctx context.Context, hexData string) error {
	if err := g.post(ctx, "/upload-image", map[string]string{"hexData": hexData}, nil); err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	return nil
}

func (g *HTTPGateway) UpdateInfo(ctx context.Context, info core.CardInfoWrite) error {
	if err := g.post(ctx, "/update-info", info, nil); err != nil {
		return fmt.Errorf("update card info: %w", err)
	}
	return nil
}

func (g *HTTPGateway) UpdatePoints(ctx context.Context, points int64) error {
	if err := g.post(ctx, "/update-points", map[string]int64{"points": points}, nil); err != nil {
		return fmt.Errorf("update points: %w", err)
	}
	return nil
}

func (g *HTTPGateway) ChangePin(ctx context.Context, oldPin, newPin string) (*core.PinResult, error) {
	var out core.PinResult
	body := map[string]string{"oldPin": oldPin, "newPin": newPin}
	if err := g.post(ctx, "/change-pin", body, &out); err != nil {
		return nil, fmt.Errorf("change pin: %w", err)
	}
	return &out, nil
}

func (g *HTTPGateway) UnblockPin(ctx context.Context) (*core.PinResult, error) {
	var out core.PinResult
	if err := g.post(ctx, "/unblock-pin", struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("unblock pin: %w", err)
	}
	return &out, nil
}

func (g *HTTPGateway) Register(ctx context.Context, pin string) (*core.ProvisionedCard, error) {
	var out core.ProvisionedCard
	if err := g.post(ctx, "/register", map[string]string{"pin": pin}, &out); err != nil {
		return nil, fmt.Errorf("provision card: %w", err)
	}
	return &out, nil
}

func (g *HTTPGateway) get(ctx context.Context, path string, out any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrReaderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reader middleware returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reader response: %w", err)
	}
	return nil
}
