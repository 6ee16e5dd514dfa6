// Package ledger implements the LedgerService port against the member ledger
// HTTP API.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
)

// Client is an HTTP client for the ledger service.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

// NewClient creates a ledger client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger) ports.LedgerService {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithField("component", "ledger"),
	}
}

func (c *Client) Member(ctx context.Context, cardSerial string) (*core.Member, error) {
	var out core.Member
	err := c.getJSON(ctx, "/cards/"+url.PathEscape(cardSerial), &out)
	if err != nil {
		var sErr *statusError
		if errors.As(err, &sErr) && sErr.code == http.StatusNotFound {
			return nil, core.ErrMemberNotFound
		}
		return nil, fmt.Errorf("fetch member: %w", err)
	}
	return &out, nil
}

func (c *Client) RegisterMember(ctx context.Context, cardSerial, publicKey string, reg core.Registration) (*core.Member, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"cardSerial": cardSerial,
		"publicKey":  publicKey,
		"fullName":   reg.FullName,
		"phone":      reg.Phone,
	}
	// Optional profile fields are omitted entirely when empty.
	if reg.DOB != "" {
		fields["dob"] = reg.DOB
	}
	if reg.Address != "" {
		fields["address"] = reg.Address
	}
	if reg.Email != "" {
		fields["email"] = reg.Email
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
	}
	if len(reg.Avatar) > 0 {
		fw, err := w.CreateFormFile("avatar", "avatar.jpg")
		if err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
		if _, err := fw.Write(reg.Avatar); err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build register form: %w", err)
	}

	var out core.Member
	if err := c.doMultipart(ctx, http.MethodPost, "/cards/register", &body, w.FormDataContentType(), &out); err != nil {
		return nil, fmt.Errorf("register member: %w", err)
	}
	return &out, nil
}

// challengeResponse mirrors the ledger's challenge issuance payload.
type challengeResponse struct {
	Challenge string `json:"challenge"`
}

func (c *Client) Challenge(ctx context.Context) (string, error) {
	var out challengeResponse
	if err := c.getJSON(ctx, "/cards/auth/challenge", &out); err != nil {
		return "", fmt.Errorf("fetch challenge: %w", err)
	}
	return out.Challenge, nil
}

// verifyResponse mirrors the ledger's signature verification payload.
type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) VerifyChallenge(ctx context.Context, cardSerial, challenge, signature string) error {
	body := map[string]string{
		"cardSerial": cardSerial,
		"challenge":  challenge,
		"signature":  signature,
	}

	var out verifyResponse
	if err := c.postJSON(ctx, "/cards/auth/verify", body, &out); err != nil {
		return fmt.Errorf("verify challenge: %w", err)
	}
	if !out.Success {
		c.log.WithField("card_serial", cardSerial).WithField("reason", out.Message).
			Warn("ledger rejected challenge signature")
		return core.ErrChallengeVerificationFailed
	}
	return nil
}

func (c *Client) CommitTransaction(ctx context.Context, cardSerial string, req core.TransactionRequest) (*core.TransactionResult, error) {
	var out core.TransactionResult
	path := "/cards/" + url.PathEscape(cardSerial) + "/transaction"
	if err := c.postJSON(ctx, path, req, &out); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateMember(ctx context.Context, cardSerial string, upd core.MemberUpdate) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"fullName": upd.FullName,
		"phone":    upd.Phone,
		"dob":      upd.DOB,
		"address":  upd.Address,
		"email":    upd.Email,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("build update form: %w", err)
		}
	}
	if len(upd.Avatar) > 0 {
		fw, err := w.CreateFormFile("avatar", "avatar.jpg")
		if err != nil {
			return fmt.Errorf("build update form: %w", err)
		}
		if _, err := fw.Write(upd.Avatar); err != nil {
			return fmt.Errorf("build update form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build update form: %w", err)
	}

	path := "/cards/" + url.PathEscape(cardSerial) + "/user"
	if err := c.doMultipart(ctx, http.MethodPatch, path, &body, w.FormDataContentType(), nil); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

func (c *Client) Transactions(ctx context.Context, filter core.TransactionFilter) (*core.TransactionPage, error) {
	q := url.Values{}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.CardSerial != "" {
		q.Set("cardSerial", filter.CardSerial)
	}

	path := "/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out core.TransactionPage
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return &out, nil
}

// statusError is a non-2xx ledger response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ledger returned status %d: %s", e.code, e.body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrLedgerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return nil
}
