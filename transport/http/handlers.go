// Package http exposes the orchestration services to the POS front-end.
package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KMA-JAVA-CARD/cardpoint/core"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
	"github.com/KMA-JAVA-CARD/cardpoint/service"
)

// Handlers contains the HTTP handlers for the terminal API.
type Handlers struct {
	coordinator  *service.AuthenticationCoordinator
	reconciler   *service.PointsReconciler
	orchestrator *service.TransactionOrchestrator
	pinLifecycle *service.PinLifecycleManager
	members      *service.MemberService
	tokenizer    ports.SessionTokenizer
}

// NewHandlers creates the handler set.
func NewHandlers(
	coordinator *service.AuthenticationCoordinator,
	reconciler *service.PointsReconciler,
	orchestrator *service.TransactionOrchestrator,
	pinLifecycle *service.PinLifecycleManager,
	members *service.MemberService,
	tokenizer ports.SessionTokenizer,
) *Handlers {
	return &Handlers{
		coordinator:  coordinator,
		reconciler:   reconciler,
		orchestrator: orchestrator,
		pinLifecycle: pinLifecycle,
		members:      members,
		tokenizer:    tokenizer,
	}
}

// ReaderStatus handles the idempotent detect call.
func (h *Handlers) ReaderStatus(c *gin.Context) {
	presence, err := h.coordinator.Detect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presence)
}

// Authenticate runs the full PIN plus challenge-response flow and returns a
// session reference token.
func (h *Handlers) Authenticate(c *gin.Context) {
	var req struct {
		Pin string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.coordinator.Authenticate(c.Request.Context(), req.Pin)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokenizer.SessionToToken(session)
	if err != nil {
		h.coordinator.CancelSession(session.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"card_serial": session.CardSerial,
	})
}

// EndSession cancels the session, expiring it immediately.
func (h *Handlers) EndSession(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}
	h.coordinator.CancelSession(session.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}

// Balance reconciles card and ledger balances and reports both.
func (h *Handlers) Balance(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	rs, err := h.reconciler.Reconcile(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":     rs.Member.PointBalance,
		"card_points": rs.CardPoints,
		"synced":      rs.Synced,
		"member":      rs.Member,
	})
}

// Checkout reconciles and then commits one transaction.
func (h *Handlers) Checkout(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	var req struct {
		Type        core.TransactionType `json:"type" binding:"required"`
		Amount      int64                `json:"amount" binding:"required"`
		Description string               `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()

	// Commit requires a reconciled session: balances must agree immediately
	// before the ledger call.
	rs, err := h.reconciler.Reconcile(ctx, session)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.orchestrator.Commit(ctx, rs, req.Type, req.Amount, req.Description)
	if err != nil {
		var partial *core.PartialInconsistencyError
		if errors.As(err, &partial) {
			// The transaction is final; the card will be healed by the next
			// reconcile. Surface a warning, not a failure.
			c.JSON(http.StatusOK, gin.H{
				"result":  partial.Result,
				"warning": "card balance not updated; it will sync on next read",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ChangePin replaces the card PIN after re-running the authentication
// sequence with the old PIN.
func (h *Handlers) ChangePin(c *gin.Context) {
	var req struct {
		OldPin string `json:"old_pin" binding:"required"`
		NewPin string `json:"new_pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.pinLifecycle.ChangePin(c.Request.Context(), req.OldPin, req.NewPin); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "PIN updated"})
}

// Unblock clears a blocked card and restores its data from the ledger.
func (h *Handlers) Unblock(c *gin.Context) {
	result, err := h.pinLifecycle.Unblock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterMember issues a new card and member record. Multipart form:
// pin, fullName, phone, optional email/address/dob/avatarHex and an optional
// avatar file for the ledger.
func (h *Handlers) RegisterMember(c *gin.Context) {
	reg := core.Registration{
		PIN:      c.PostForm("pin"),
		FullName: c.PostForm("fullName"),
		Phone:    c.PostForm("phone"),
		Email:    c.PostForm("email"),
		Address:  c.PostForm("address"),
		DOB:      c.PostForm("dob"),
		AvatarIx: c.PostForm("avatarHex"),
	}
	if reg.PIN == "" || reg.FullName == "" || reg.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pin, fullName and phone are required"})
		return
	}

	if avatar, err := readFormFile(c, "avatar"); err == nil {
		reg.Avatar = avatar
	}

	member, err := h.members.Register(c.Request.Context(), reg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// MemberInfo returns the ledger record for a card serial.
func (h *Handlers) MemberInfo(c *gin.Context) {
	member, err := h.members.MemberInfo(c.Request.Context(), c.Param("serial"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// UpdateProfile changes the authenticated member's personal data on card and
// ledger. Multipart, same fields as registration minus the PIN.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	upd := core.MemberUpdate{
		FullName: c.PostForm("fullName"),
		Phone:    c.PostForm("phone"),
		Email:    c.PostForm("email"),
		Address:  c.PostForm("address"),
		DOB:      c.PostForm("dob"),
		AvatarIx: c.PostForm("avatarHex"),
	}
	if avatar, err := readFormFile(c, "avatar"); err == nil {
		upd.Avatar = avatar
	}

	if err := h.members.UpdateProfile(c.Request.Context(), session.ID, upd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// CardInfo returns the authenticated card's personal record and photo.
func (h *Handlers) CardInfo(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	info, err := h.members.CardInfo(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Transactions lists committed transactions.
func (h *Handlers) Transactions(c *gin.Context) {
	filter := core.TransactionFilter{
		CardSerial: c.Query("cardSerial"),
		Type:       core.TransactionType(c.Query("type")),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	page, member, err := h.members.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"transactions": page}
	if member != nil {
		resp["member"] = member
	}
	c.JSON(http.StatusOK, resp)
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// respondError maps domain errors to HTTP statuses with enough structure for
// the front-end to choose between re-prompting, retrying and restarting.
func respondError(c *gin.Context, err error) {
	var pinErr *core.PinIncorrectError
	if errors.As(err, &pinErr) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "incorrect_pin",
			"remaining": pinErr.Remaining,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrCardAbsent):
		c.JSON(http.StatusConflict, gin.H{"error": "card_absent"})
	case errors.Is(err, core.ErrCardBlank):
		c.JSON(http.StatusConflict, gin.H{"error": "card_blank"})
	case errors.Is(err, core.ErrCardBlocked), errors.Is(err, core.ErrPinLockedOut):
		c.JSON(http.StatusLocked, gin.H{"error": "card_blocked"})
	case errors.Is(err, core.ErrChallengeVerificationFailed), errors.Is(err, core.ErrChallengeReused):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "challenge_verification_failed"})
	case errors.Is(err, core.ErrPinVerificationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "pin_verification_failed"})
	case errors.Is(err, core.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session_expired"})
	case errors.Is(err, core.ErrInsufficientPoints):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient_points"})
	case errors.Is(err, core.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member_not_found"})
	case errors.Is(err, core.ErrReaderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reader_unavailable"})
	case errors.Is(err, core.ErrLedgerUnreachable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger_unreachable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
