package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/restodash/backend/internal/application/cashregister"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/restodash/backend/internal/interfaces/http/dto"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService is the part of the ledger service the handler drives
type LedgerService interface {
	ListRegisters(ctx context.Context, query ledgerapp.ListRegistersQuery) *ledgerapp.RegisterListing
	GetRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error)
	OpenRegister(ctx context.Context, cmd ledgerapp.OpenRegisterCommand) (cashregister.CreateOutcome, error)
	CloseRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error)
	ListMovements(ctx context.Context, registerID uuid.UUID) ([]*cashregister.Movement, error)
	RecordMovement(ctx context.Context, cmd ledgerapp.RecordMovementCommand) (*cashregister.Movement, error)
	ReconcileBalance(ctx context.Context, registerID uuid.UUID) (*ledgerapp.ReconcileResult, error)
	GetSummary(ctx context.Context, registerID uuid.UUID) (*cashregister.RegisterSummary, error)
}

// CashRegisterHandler handles the cash register endpoints
type CashRegisterHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewCashRegisterHandler creates a new CashRegisterHandler
func NewCashRegisterHandler(ledger LedgerService, logger *zap.Logger) *CashRegisterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashRegisterHandler{
		BaseHandler: BaseHandler{logger: logger},
		ledger:      ledger,
	}
}

// List returns the registers of the restaurant in scope, or all of them.
// The list never fails; a degraded source is reported in warnings.
//
//	GET /cash-registers?force_refresh=true&status=OPEN
func (h *CashRegisterHandler) List(c *gin.Context) {
	var req dto.ListRegistersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	query := ledgerapp.ListRegistersQuery{
		ForceRefresh: req.ForceRefresh,
		RestaurantID: getRestaurantScope(c),
	}
	if req.Status != "" {
		status := cashregister.RegisterStatus(req.Status)
		query.Status = &status
	}

	listing := h.ledger.ListRegisters(c.Request.Context(), query)
	resp := dto.RegisterListResponse{
		Registers: dto.NewRegisterResponses(listing.Registers),
		Source:    string(listing.Source),
		Degraded:  listing.Degraded(),
		Cached:    listing.Cached,
	}

	switch listing.Source {
	case ledgerapp.FetchSourceEmergency:
		h.SuccessWithWarnings(c, http.StatusOK, resp, dto.WarningDegradedList)
	case ledgerapp.FetchSourceEmpty:
		h.SuccessWithWarnings(c, http.StatusOK, resp, dto.WarningEmptyList)
	default:
		h.Success(c, resp)
	}
}

// Get returns one register
//
//	GET /cash-registers/:id
func (h *CashRegisterHandler) Get(c *gin.Context) {
	register, ok := h.scopedRegister(c)
	if !ok {
		return
	}
	h.Success(c, dto.NewRegisterResponse(register))
}

// Open opens a register for the restaurant in scope. A repeated
// Idempotency-Key answers 200 with the register of the first open.
//
//	POST /cash-registers
func (h *CashRegisterHandler) Open(c *gin.Context) {
	restaurantID, _ := middleware.GetRestaurantID(c)

	var req dto.OpenRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	outcome, err := h.ledger.OpenRegister(c.Request.Context(), ledgerapp.OpenRegisterCommand{
		Name:           req.Name,
		InitialAmount:  decimal.RequireFromString(strings.TrimSpace(req.InitialAmount)),
		RestaurantID:   restaurantID,
		Opening:        req.Opening.ToDomain(),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader)),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.OpenRegisterResponse{
		Register: dto.NewRegisterResponse(outcome.OpenedRegister()),
		Path:     string(outcome.Path()),
	}
	switch outcome.(type) {
	case cashregister.ReplayedOpen:
		h.Success(c, resp)
	case cashregister.FallbackWriteUsed:
		h.SuccessWithWarnings(c, http.StatusCreated, resp, dto.WarningFallbackWriteUsed)
	default:
		h.Created(c, resp)
	}
}

// Close closes a register, keeping its balance
//
//	POST /cash-registers/:id/close
func (h *CashRegisterHandler) Close(c *gin.Context) {
	register, ok := h.scopedRegister(c)
	if !ok {
		return
	}

	closed, err := h.ledger.CloseRegister(c.Request.Context(), register.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRegisterResponse(closed))
}

// ListMovements returns the movements of a register, oldest first
//
//	GET /cash-registers/:id/movements
func (h *CashRegisterHandler) ListMovements(c *gin.Context) {
	register, ok := h.scopedRegister(c)
	if !ok {
		return
	}

	movements, err := h.ledger.ListMovements(c.Request.Context(), register.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewMovementResponses(movements))
}

// RecordMovement appends an income or expense to an open register
//
//	POST /cash-registers/:id/movements
func (h *CashRegisterHandler) RecordMovement(c *gin.Context) {
	registerID, ok := h.bindID(c)
	if !ok {
		return
	}
	restaurantID, _ := middleware.GetRestaurantID(c)

	var req dto.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	movement, err := h.ledger.RecordMovement(c.Request.Context(), ledgerapp.RecordMovementCommand{
		Description:   req.Description,
		Amount:        decimal.RequireFromString(strings.TrimSpace(req.Amount)),
		Type:          cashregister.MovementType(req.Type),
		PaymentMethod: cashregister.PaymentMethod(req.PaymentMethod),
		RegisterID:    registerID,
		RestaurantID:  restaurantID,
		OrderID:       req.ParsedOrderID(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewMovementResponse(movement))
}

// Summary returns the totals of a register and its drift from the movements
//
//	GET /cash-registers/:id/summary
func (h *CashRegisterHandler) Summary(c *gin.Context) {
	register, ok := h.scopedRegister(c)
	if !ok {
		return
	}

	summary, err := h.ledger.GetSummary(c.Request.Context(), register.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSummaryResponse(summary))
}

// Reconcile recomputes the register balance from its movements
//
//	POST /cash-registers/:id/reconcile
func (h *CashRegisterHandler) Reconcile(c *gin.Context) {
	register, ok := h.scopedRegister(c)
	if !ok {
		return
	}

	result, err := h.ledger.ReconcileBalance(c.Request.Context(), register.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Corrected {
		h.logger.Warn("Register balance corrected",
			zap.String("request_id", getRequestID(c)),
			zap.String("register_id", register.ID.String()),
			zap.String("previous_balance", result.PreviousBalance.String()),
			zap.String("derived_balance", result.DerivedBalance.String()),
		)
	}
	h.Success(c, dto.NewReconcileResponse(result.Register, result.PreviousBalance, result.DerivedBalance, result.Corrected))
}

// scopedRegister loads the :id register. A register of another restaurant
// answers 404 so that IDs do not leak across restaurants.
func (h *CashRegisterHandler) scopedRegister(c *gin.Context) (*cashregister.Register, bool) {
	id, ok := h.bindID(c)
	if !ok {
		return nil, false
	}

	register, err := h.ledger.GetRegister(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	if scope := getRestaurantScope(c); scope != nil && !register.BelongsTo(*scope) {
		h.HandleError(c, shared.ErrNotFound)
		return nil, false
	}
	return register, true
}
