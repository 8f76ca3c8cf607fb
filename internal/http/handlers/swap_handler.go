// Swap HTTP handlers.
//
// This file exposes REST endpoints for the swap lifecycle:
//   - POST   /quotes        (price a swap, store it as the pending intent)
//   - DELETE /quotes        (reject the pending intent)
//   - POST   /swaps         (confirm the pending intent, start the pipeline)
//   - GET    /swaps/{id}    (pipeline status)
//   - GET    /swaps         (session audit trail, paginated)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. All endpoints are keyed by the
// caller's session (X-Session-Key header), the same identifier the
// notification channel uses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aptosphere/go-swap-backend/internal/domain"
	"github.com/aptosphere/go-swap-backend/internal/services"
	"github.com/aptosphere/go-swap-backend/internal/token"
	"github.com/aptosphere/go-swap-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SwapService defines the swap lifecycle operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and must honor the provided
// context for cancellation and timeouts.
type SwapService interface {
	// RequestQuote prices a swap and stores it as the session's pending intent.
	RequestQuote(ctx context.Context, sessionKey, fromSym, toSym, amount string) (*services.Quote, error)
	// Confirm promotes the pending intent to a running pipeline.
	Confirm(ctx context.Context, sessionKey string) (*domain.SwapRecord, error)
	// Reject discards the pending intent.
	Reject(ctx context.Context, sessionKey string) error
	// Status fetches one of the session's swap records by ID. Records owned
	// by other sessions read as not found.
	Status(ctx context.Context, sessionKey, id string) (*domain.SwapRecord, error)
	// History returns a page of the session's swap records and the total count.
	History(ctx context.Context, sessionKey string, page, pageSize int) ([]domain.SwapRecord, int64, error)
}

// WalletService defines payout address registration operations.
type WalletService interface {
	// Bind stores (or replaces) the session's payout address.
	Bind(ctx context.Context, sessionKey, address string) error
	// Binding fetches the session's payout address.
	Binding(ctx context.Context, sessionKey string) (*domain.WalletBinding, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for swaps and wallet bindings.
type Handlers struct {
	swapSvc   SwapService
	walletSvc WalletService

	// depositAddress is echoed in quote responses so clients can show the
	// custodial address up front.
	depositAddress string
}

// New constructs a Handlers instance bound to the given services.
func New(swapSvc SwapService, walletSvc WalletService, depositAddress string) *Handlers {
	return &Handlers{swapSvc: swapSvc, walletSvc: walletSvc, depositAddress: depositAddress}
}

// sessionKey extracts the caller's session identifier from the Gin context
// (set by upstream middleware) or the X-Session-Key header. Empty means the
// caller is unidentified and the request must be refused.
func sessionKey(c *gin.Context) string {
	if v, ok := c.Get("sessionKey"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		return strings.TrimSpace(c.GetHeader("X-Session-Key"))
	}
	return ""
}

//
// DTOs
//

// QuoteRequest is the JSON payload for pricing a swap.
type QuoteRequest struct {
	SourceToken string `json:"source_token" binding:"required" example:"APT"`
	DestToken   string `json:"dest_token"   binding:"required" example:"USDC"`
	// Amount is a human-readable decimal quantity of the source token.
	Amount string `json:"amount" binding:"required" example:"0.1"`
}

// QuoteResponse is the priced swap returned to the client. The quote is
// advisory: the executed swap reprices the deposit actually observed.
type QuoteResponse struct {
	SourceToken    string    `json:"source_token"    example:"APT"`
	DestToken      string    `json:"dest_token"      example:"USDC"`
	Amount         string    `json:"amount"          example:"0.1"`
	ExpectedOutput string    `json:"expected_output" example:"0.498"`
	InUnits        string    `json:"in_units"        example:"10000000"`
	OutUnits       string    `json:"out_units"       example:"498000"`
	DepositAddress string    `json:"deposit_address"`
	QuotedAt       time.Time `json:"quoted_at"`
}

// BindWalletRequest is the JSON payload for registering a payout address.
type BindWalletRequest struct {
	Address string `json:"address" binding:"required" example:"0x9f3a0b1c..."`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSwapsResponse wraps a page of swap records and pagination information.
type ListSwapsResponse struct {
	Swaps      []domain.SwapRecord `json:"swaps"`
	Pagination Pagination          `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// requireSession enforces the X-Session-Key header and returns the key.
func requireSession(c *gin.Context) (string, bool) {
	sk := sessionKey(c)
	if sk == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-Session-Key header required")
		return "", false
	}
	return sk, true
}

//
// Handlers
//

// RequestQuote godoc
// @ID          requestQuote
// @Summary     Price a swap
// @Description Prices a swap of the given token pair and amount and stores it
// @Description as the session's pending intent, replacing any prior one.
// @Tags        Quotes
// @Accept      json
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
// @Param       body           body    handlers.QuoteRequest  true  "Quote payload"
//
// @Success     200  {object}  handlers.QuoteResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / unknown token"
// @Failure     503  {object}  handlers.ErrorResponse  "Rate unavailable"
// @Router      /quotes [post]
func (h *Handlers) RequestQuote(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "source_token, dest_token and amount required")
		return
	}

	q, err := h.swapSvc.RequestQuote(c.Request.Context(), sk, req.SourceToken, req.DestToken, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrUnknownToken):
			fail(c, http.StatusBadRequest, ErrCodeUnknownToken, err.Error())
		case errors.Is(err, services.ErrSamePair), errors.Is(err, services.ErrInvalidAmount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrRateUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeRateUnavailable, "rate unavailable, try again")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, QuoteResponse{
		SourceToken:    q.From.Symbol,
		DestToken:      q.To.Symbol,
		Amount:         q.Amount.String(),
		ExpectedOutput: q.OutAmount().String(),
		InUnits:        q.InUnits.String(),
		OutUnits:       q.OutUnits.String(),
		DepositAddress: h.depositAddress,
		QuotedAt:       q.At,
	})
}

// RejectQuote godoc
// @ID          rejectQuote
// @Summary     Reject the pending quote
// @Description Discards the session's pending intent without starting a swap.
// @Tags        Quotes
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "No pending quote"
// @Router      /quotes [delete]
func (h *Handlers) RejectQuote(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	if err := h.swapSvc.Reject(c.Request.Context(), sk); err != nil {
		if errors.Is(err, services.ErrNoPendingIntent) {
			fail(c, http.StatusNotFound, ErrCodeNoPendingQuote, "no pending quote to reject")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// ConfirmSwap godoc
// @ID          confirmSwap
// @Summary     Confirm the pending quote
// @Description Promotes the session's pending intent to a swap record and
// @Description starts the deposit-swap-payout pipeline.
// @Tags        Swaps
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
//
// @Success     201  {object}  domain.SwapRecord
// @Failure     404  {object}  handlers.ErrorResponse "No pending quote"
// @Failure     409  {object}  handlers.ErrorResponse "Wallet unbound / swap in progress"
// @Router      /swaps [post]
func (h *Handlers) ConfirmSwap(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	rec, err := h.swapSvc.Confirm(c.Request.Context(), sk)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPendingIntent):
			fail(c, http.StatusNotFound, ErrCodeNoPendingQuote, "no pending quote to confirm")
		case errors.Is(err, services.ErrRecipientUnbound):
			fail(c, http.StatusConflict, ErrCodeWalletUnbound, "bind a payout address before confirming")
		case errors.Is(err, services.ErrSwapInProgress):
			fail(c, http.StatusConflict, ErrCodeSwapInProgress, "a swap is already in progress for this session")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, rec)
}

// GetSwap godoc
// @ID          getSwap
// @Summary     Swap status
// @Description Returns the swap record, including status, observed amounts,
// @Description and transaction hashes as the pipeline fills them in.
// @Tags        Swaps
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
// @Param       id  path  string  true  "Swap ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.SwapRecord
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Swap not found"
// @Router      /swaps/{id} [get]
func (h *Handlers) GetSwap(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "swap id must be a UUID")
		return
	}
	rec, err := h.swapSvc.Status(c.Request.Context(), sk, id)
	if err != nil {
		if errors.Is(err, services.ErrSwapNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "swap not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rec)
}

// ListSwaps godoc
// @ID          listSwaps
// @Summary     List swaps (paginated)
// @Description Returns a page of the session's swap audit trail, newest first.
// @Tags        Swaps
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSwapsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /swaps [get]
func (h *Handlers) ListSwaps(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.swapSvc.History(c.Request.Context(), sk, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSwapsResponse{
		Swaps: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
