package router

import (
	"github.com/restodash/backend/internal/interfaces/http/handler"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
)

// CashRegisterRoutes describes the cash register endpoints. Writes require a
// restaurant scope; reads accept an unscoped request.
func CashRegisterRoutes(h *handler.CashRegisterHandler) *DomainGroup {
	registers := NewDomainGroup("cash-registers", "/cash-registers")
	registers.
		GET("", h.List).
		GET("/:id", h.Get).
		GET("/:id/movements", h.ListMovements).
		GET("/:id/summary", h.Summary)

	registers.Group("cash-register-writes", "").
		Use(middleware.RequireRestaurant()).
		POST("", h.Open).
		POST("/:id/close", h.Close).
		POST("/:id/movements", h.RecordMovement).
		POST("/:id/reconcile", h.Reconcile)

	return registers
}
