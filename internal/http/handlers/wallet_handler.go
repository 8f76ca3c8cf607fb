// Wallet HTTP handlers.
//
// This file exposes REST endpoints for payout address registration:
//   - PUT /wallets   (bind or replace the session's payout address)
//   - GET /wallets   (current binding)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aptosphere/go-swap-backend/internal/services"
)

// BindWallet godoc
// @ID          bindWallet
// @Summary     Bind a payout address
// @Description Stores the address swapped funds are forwarded to. Re-binding
// @Description replaces the previous address (last write wins).
// @Tags        Wallets
// @Accept      json
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
// @Param       body           body    handlers.BindWalletRequest  true  "Payout address"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request / invalid address"
// @Router      /wallets [put]
func (h *Handlers) BindWallet(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	var req BindWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "address required")
		return
	}
	if err := h.walletSvc.Bind(c.Request.Context(), sk, req.Address); err != nil {
		if errors.Is(err, services.ErrInvalidAddress) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "address must be 0x-prefixed hex")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// GetWallet godoc
// @ID          getWallet
// @Summary     Current payout address
// @Tags        Wallets
// @Produce     json
//
// @Param       X-Session-Key  header  string  true  "Session key"
//
// @Success     200  {object}  domain.WalletBinding
// @Failure     404  {object}  handlers.ErrorResponse "No binding"
// @Router      /wallets [get]
func (h *Handlers) GetWallet(c *gin.Context) {
	sk, okSess := requireSession(c)
	if !okSess {
		return
	}
	b, err := h.walletSvc.Binding(c.Request.Context(), sk)
	if err != nil {
		if errors.Is(err, services.ErrNoBinding) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no payout address bound")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, b)
}
