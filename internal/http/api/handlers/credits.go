package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fidelicard/loyalty/internal/ledger"
)

// CreditHandler handles balance-changing endpoints.
type CreditHandler struct {
	ledger *ledger.Ledger
}

// NewCreditHandler wires a credit handler with the ledger.
func NewCreditHandler(l *ledger.Ledger) *CreditHandler {
	return &CreditHandler{ledger: l}
}

// Recharge resets a customer's balance and expiration window.
func (h *CreditHandler) Recharge(c *gin.Context) {
	customer, errRecharge := h.ledger.Recharge(c.Request.Context(), c.Param("card_id"))
	if errRecharge != nil {
		respondLedgerError(c, errRecharge)
		return
	}
	c.JSON(http.StatusOK, customerPayload(customer))
}

// addCreditsRequest captures a manual credit addition.
type addCreditsRequest struct {
	Amount amountField `json:"amount"`
}

// AddManual adds credits to a non-expired customer.
func (h *CreditHandler) AddManual(c *gin.Context) {
	var body addCreditsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	balance, errAdd := h.ledger.AddManual(c.Request.Context(), c.Param("card_id"), string(body.Amount))
	if errAdd != nil {
		respondLedgerError(c, errAdd)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

// deductRequest captures a merchant deduction.
type deductRequest struct {
	Amount   amountField `json:"amount"`
	Merchant string      `json:"merchant"`
}

// Deduct spends credits at an allow-listed merchant.
func (h *CreditHandler) Deduct(c *gin.Context) {
	var body deductRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	balance, errDeduct := h.ledger.Deduct(c.Request.Context(), c.Param("card_id"), string(body.Amount), body.Merchant)
	if errDeduct != nil {
		respondLedgerError(c, errDeduct)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}
