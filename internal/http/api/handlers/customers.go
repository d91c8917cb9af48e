package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fidelicard/loyalty/internal/ledger"
	"github.com/fidelicard/loyalty/internal/models"
	"github.com/fidelicard/loyalty/internal/reports"
)

// CustomerHandler handles customer lifecycle endpoints.
type CustomerHandler struct {
	ledger *ledger.Ledger
}

// NewCustomerHandler wires a customer handler with the ledger.
func NewCustomerHandler(l *ledger.Ledger) *CustomerHandler {
	return &CustomerHandler{ledger: l}
}

// registerRequest captures the payload for registering a customer.
type registerRequest struct {
	Name   string `json:"name"`
	CardID string `json:"card_id"`
	Phone  string `json:"phone"`
}

func customerPayload(customer *models.Customer) gin.H {
	return gin.H{
		"card_id":      customer.CardID,
		"name":         customer.Name,
		"phone":        customer.Phone,
		"credits":      customer.Credits,
		"last_payment": time.Time(customer.LastPayment).Format("2006-01-02"),
		"expires_on":   time.Time(customer.ExpiresOn).Format("2006-01-02"),
	}
}

// Register creates a customer with the initial credit grant.
func (h *CustomerHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	customer, errRegister := h.ledger.Register(c.Request.Context(), body.Name, body.CardID, body.Phone)
	if errRegister != nil {
		respondLedgerError(c, errRegister)
		return
	}
	c.JSON(http.StatusCreated, customerPayload(customer))
}

// List returns (card id, name) pairs in insertion order.
func (h *CustomerHandler) List(c *gin.Context) {
	refs, errList := h.ledger.ListAll(c.Request.Context())
	if errList != nil {
		respondLedgerError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": refs})
}

// Roster returns full customer rows, optionally filtered by name.
func (h *CustomerHandler) Roster(c *gin.Context) {
	rows, errRoster := h.ledger.Roster(c.Request.Context(), c.Query("name"))
	if errRoster != nil {
		respondLedgerError(c, errRoster)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, customerPayload(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"customers": out})
}

// Info returns the point-of-sale summary for one customer.
func (h *CustomerHandler) Info(c *gin.Context) {
	info, errInfo := h.ledger.Info(c.Request.Context(), c.Param("card_id"))
	if errInfo != nil {
		respondLedgerError(c, errInfo)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"card_id":        c.Param("card_id"),
		"name":           info.Name,
		"credits":        info.Credits,
		"days_remaining": info.DaysRemaining,
		"expired":        info.Expired,
		"expires_on":     info.ExpiresOn,
	})
}

// Lookup finds a customer by phone number.
func (h *CustomerHandler) Lookup(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing phone"})
		return
	}
	customer, errFind := h.ledger.FindByPhone(c.Request.Context(), phone)
	if errFind != nil {
		respondLedgerError(c, errFind)
		return
	}
	c.JSON(http.StatusOK, customerPayload(customer))
}

// renameRequest captures the payload for updating name and phone.
type renameRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Rename overwrites a customer's name and phone.
func (h *CustomerHandler) Rename(c *gin.Context) {
	var body renameRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errRename := h.ledger.Rename(c.Request.Context(), c.Param("card_id"), body.Name, body.Phone); errRename != nil {
		respondLedgerError(c, errRename)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Delete removes a customer and their history.
func (h *CustomerHandler) Delete(c *gin.Context) {
	if errDelete := h.ledger.Delete(c.Request.Context(), c.Param("card_id")); errDelete != nil {
		respondLedgerError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// History returns a customer's balance changes, newest first.
func (h *CustomerHandler) History(c *gin.Context) {
	entries, errHistory := h.ledger.History(c.Request.Context(), c.Param("card_id"))
	if errHistory != nil {
		respondLedgerError(c, errHistory)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"merchant":  entry.MerchantLabel,
			"amount":    entry.Amount,
			"timestamp": entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// Statement streams a customer's credit statement as a PDF.
func (h *CustomerHandler) Statement(c *gin.Context) {
	ctx := c.Request.Context()
	cardID := c.Param("card_id")

	customer, errFind := h.ledger.Find(ctx, cardID)
	if errFind != nil {
		respondLedgerError(c, errFind)
		return
	}
	info, errInfo := h.ledger.Info(ctx, cardID)
	if errInfo != nil {
		respondLedgerError(c, errInfo)
		return
	}
	entries, errHistory := h.ledger.History(ctx, cardID)
	if errHistory != nil {
		respondLedgerError(c, errHistory)
		return
	}

	var buf bytes.Buffer
	if errWrite := reports.WriteStatement(&buf, customer, info, entries); errWrite != nil {
		respondLedgerError(c, errWrite)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="statement-`+cardID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// MerchantHandler exposes the merchant allow-list.
type MerchantHandler struct {
	ledger *ledger.Ledger
}

// NewMerchantHandler wires a merchant handler with the ledger.
func NewMerchantHandler(l *ledger.Ledger) *MerchantHandler {
	return &MerchantHandler{ledger: l}
}

// List returns merchant display names for selection UIs.
func (h *MerchantHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"merchants": h.ledger.Merchants().Names()})
}
