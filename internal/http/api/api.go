// Package api registers the HTTP surface of the loyalty service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fidelicard/loyalty/internal/gate"
	"github.com/fidelicard/loyalty/internal/http/api/handlers"
	"github.com/fidelicard/loyalty/internal/ledger"
)

// RegisterRoutes wires all endpoints onto the engine. Sensitive operations
// sit behind the gate middleware; deduction stays open, matching the point
// of sale flow where merchants have no admin credential.
func RegisterRoutes(r *gin.Engine, l *ledger.Ledger, g *gate.Gate) {
	if r == nil || l == nil || g == nil {
		return
	}

	r.GET("/healthz", handlers.Health)

	apiGroup := r.Group("/api")

	if g.OperatorMode() {
		authHandler := handlers.NewAuthHandler(g)
		apiGroup.POST("/login", authHandler.Login)
	}

	customerHandler := handlers.NewCustomerHandler(l)
	creditHandler := handlers.NewCreditHandler(l)
	merchantHandler := handlers.NewMerchantHandler(l)

	apiGroup.GET("/customers", customerHandler.List)
	apiGroup.GET("/customers/:card_id", customerHandler.Info)
	apiGroup.GET("/customers/:card_id/history", customerHandler.History)
	apiGroup.GET("/customers/:card_id/statement.pdf", customerHandler.Statement)
	apiGroup.GET("/roster", customerHandler.Roster)
	apiGroup.GET("/lookup", customerHandler.Lookup)
	apiGroup.GET("/merchants", merchantHandler.List)
	apiGroup.POST("/customers/:card_id/deduct", creditHandler.Deduct)

	gated := apiGroup.Group("")
	gated.Use(GateMiddleware(g))
	gated.POST("/customers", customerHandler.Register)
	gated.PUT("/customers/:card_id", customerHandler.Rename)
	gated.DELETE("/customers/:card_id", customerHandler.Delete)
	gated.POST("/customers/:card_id/recharge", creditHandler.Recharge)
	gated.POST("/customers/:card_id/credits", creditHandler.AddManual)
}
