package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fidelicard/loyalty/internal/gate"
)

// AuthHandler handles operator session endpoints.
type AuthHandler struct {
	gate *gate.Gate
}

// NewAuthHandler wires an auth handler with the access gate.
func NewAuthHandler(g *gate.Gate) *AuthHandler {
	return &AuthHandler{gate: g}
}

// loginRequest captures operator credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an operator and returns a session token. The first
// login for a fresh operator sets their password.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	token, errLogin := h.gate.Login(c.Request.Context(), body.Username, body.Password)
	if errLogin != nil {
		respondLedgerError(c, errLogin)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
