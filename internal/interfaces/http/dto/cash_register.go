package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
)

// Money values travel as decimal strings so no float rounding reaches the ledger.

// OpenRegisterRequest is the body of POST /cash-registers
type OpenRegisterRequest struct {
	Name          string                 `json:"name" binding:"required,max=100"`
	InitialAmount string                 `json:"initial_amount" binding:"required,decimal_gte0"`
	Opening       *OpeningDetailsRequest `json:"opening_details" binding:"omitempty"`
}

// OpeningDetailsRequest carries operator metadata captured at opening
type OpeningDetailsRequest struct {
	OperatorID    string                `json:"operator_id" binding:"max=64"`
	OperatorName  string                `json:"operator_name" binding:"max=100"`
	Denominations []DenominationRequest `json:"denominations" binding:"omitempty,dive"`
	PendingChange bool                  `json:"pending_change"`
	Notes         string                `json:"notes" binding:"max=500"`
}

// DenominationRequest is one line of the opening cash count
type DenominationRequest struct {
	Value    string `json:"value" binding:"required,decimal_gt0"`
	Quantity int    `json:"quantity" binding:"gte=0"`
}

// ToDomain converts the request. Amount strings were validated on binding.
func (r *OpeningDetailsRequest) ToDomain() *cashregister.OpeningDetails {
	if r == nil {
		return nil
	}
	details := &cashregister.OpeningDetails{
		OperatorID:    r.OperatorID,
		OperatorName:  r.OperatorName,
		PendingChange: r.PendingChange,
		Notes:         r.Notes,
	}
	for _, d := range r.Denominations {
		details.Denominations = append(details.Denominations, cashregister.Denomination{
			Value:    decimal.RequireFromString(strings.TrimSpace(d.Value)),
			Quantity: d.Quantity,
		})
	}
	return details
}

// RecordMovementRequest is the body of POST /cash-registers/:id/movements
type RecordMovementRequest struct {
	Description   string  `json:"description" binding:"required,max=255"`
	Amount        string  `json:"amount" binding:"required,decimal_gt0"`
	Type          string  `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	PaymentMethod string  `json:"payment_method" binding:"required,oneof=CASH CREDIT_CARD DEBIT_CARD PIX OTHER"`
	OrderID       *string `json:"order_id" binding:"omitempty,uuid"`
}

// ParsedOrderID returns the order reference, if any
func (r *RecordMovementRequest) ParsedOrderID() *uuid.UUID {
	if r.OrderID == nil || *r.OrderID == "" {
		return nil
	}
	id := uuid.MustParse(*r.OrderID)
	return &id
}

// ListRegistersRequest holds the query of GET /cash-registers
type ListRegistersRequest struct {
	ForceRefresh bool   `form:"force_refresh"`
	Status       string `form:"status" binding:"omitempty,oneof=OPEN CLOSED"`
}

// RegisterResponse is a cash register on the wire
type RegisterResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	InitialAmount  string                  `json:"initial_amount"`
	CurrentAmount  string                  `json:"current_amount"`
	Status         string                  `json:"status"`
	RestaurantID   string                  `json:"restaurant_id"`
	OpenedAt       time.Time               `json:"opened_at"`
	ClosedAt       *time.Time              `json:"closed_at,omitempty"`
	OpeningDetails *OpeningDetailsResponse `json:"opening_details,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// OpeningDetailsResponse mirrors OpeningDetailsRequest
type OpeningDetailsResponse struct {
	OperatorID    string                 `json:"operator_id,omitempty"`
	OperatorName  string                 `json:"operator_name,omitempty"`
	Denominations []DenominationResponse `json:"denominations,omitempty"`
	PendingChange bool                   `json:"pending_change"`
	Notes         string                 `json:"notes,omitempty"`
}

// DenominationResponse is one line of the opening cash count
type DenominationResponse struct {
	Value    string `json:"value"`
	Quantity int    `json:"quantity"`
}

// NewRegisterResponse converts a register
func NewRegisterResponse(r *cashregister.Register) RegisterResponse {
	resp := RegisterResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		InitialAmount: money(r.InitialAmount),
		CurrentAmount: money(r.CurrentAmount),
		Status:        r.Status.String(),
		RestaurantID:  r.RestaurantID.String(),
		OpenedAt:      r.OpenedAt,
		ClosedAt:      r.ClosedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if o := r.Opening; o != nil {
		details := &OpeningDetailsResponse{
			OperatorID:    o.OperatorID,
			OperatorName:  o.OperatorName,
			PendingChange: o.PendingChange,
			Notes:         o.Notes,
		}
		for _, d := range o.Denominations {
			details.Denominations = append(details.Denominations, DenominationResponse{
				Value:    money(d.Value),
				Quantity: d.Quantity,
			})
		}
		resp.OpeningDetails = details
	}
	return resp
}

// NewRegisterResponses converts a list of registers, never returning nil
func NewRegisterResponses(registers []*cashregister.Register) []RegisterResponse {
	out := make([]RegisterResponse, 0, len(registers))
	for _, r := range registers {
		out = append(out, NewRegisterResponse(r))
	}
	return out
}

// RegisterListResponse is the body of GET /cash-registers
type RegisterListResponse struct {
	Registers []RegisterResponse `json:"registers"`
	Source    string             `json:"source"`
	Degraded  bool               `json:"degraded"`
	Cached    bool               `json:"cached"`
}

// OpenRegisterResponse is the body of POST /cash-registers
type OpenRegisterResponse struct {
	Register RegisterResponse `json:"register"`
	Path     string           `json:"path"`
}

// MovementResponse is a cash movement on the wire
type MovementResponse struct {
	ID             string    `json:"id"`
	Description    string    `json:"description"`
	Amount         string    `json:"amount"`
	SignedAmount   string    `json:"signed_amount"`
	Type           string    `json:"type"`
	PaymentMethod  string    `json:"payment_method"`
	CashRegisterID string    `json:"cash_register_id"`
	RestaurantID   string    `json:"restaurant_id"`
	OrderID        *string   `json:"order_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMovementResponse converts a movement
func NewMovementResponse(m *cashregister.Movement) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID.String(),
		Description:    m.Description,
		Amount:         money(m.Amount),
		SignedAmount:   money(m.SignedAmount()),
		Type:           m.Type.String(),
		PaymentMethod:  m.PaymentMethod.String(),
		CashRegisterID: m.CashRegisterID.String(),
		RestaurantID:   m.RestaurantID.String(),
		CreatedAt:      m.CreatedAt,
	}
	if m.OrderID != nil {
		id := m.OrderID.String()
		resp.OrderID = &id
	}
	return resp
}

// NewMovementResponses converts a list of movements, never returning nil
func NewMovementResponses(movements []*cashregister.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// MethodTotalsResponse is the per payment method part of a summary
type MethodTotalsResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

// SummaryResponse is the closing report of a register
type SummaryResponse struct {
	Register        RegisterResponse                `json:"register"`
	TotalIncome     string                          `json:"total_income"`
	TotalExpense    string                          `json:"total_expense"`
	ExpectedBalance string                          `json:"expected_balance"`
	Drift           string                          `json:"drift"`
	Balanced        bool                            `json:"balanced"`
	MovementCount   int                             `json:"movement_count"`
	ByPaymentMethod map[string]MethodTotalsResponse `json:"by_payment_method"`
}

// NewSummaryResponse converts a register summary
func NewSummaryResponse(s *cashregister.RegisterSummary) SummaryResponse {
	resp := SummaryResponse{
		Register:        NewRegisterResponse(s.Register),
		TotalIncome:     money(s.TotalIncome),
		TotalExpense:    money(s.TotalExpense),
		ExpectedBalance: money(s.ExpectedBalance),
		Drift:           money(s.Drift),
		Balanced:        s.IsBalanced(),
		MovementCount:   s.MovementCount,
		ByPaymentMethod: make(map[string]MethodTotalsResponse, len(s.ByPaymentMethod)),
	}
	for method, t := range s.ByPaymentMethod {
		resp.ByPaymentMethod[method.String()] = MethodTotalsResponse{
			Income:  money(t.Income),
			Expense: money(t.Expense),
			Net:     money(t.Net),
		}
	}
	return resp
}

// ReconcileResponse is the body of POST /cash-registers/:id/reconcile
type ReconcileResponse struct {
	Register        RegisterResponse `json:"register"`
	PreviousBalance string           `json:"previous_balance"`
	DerivedBalance  string           `json:"derived_balance"`
	Corrected       bool             `json:"corrected"`
}

// NewReconcileResponse converts a reconciliation result
func NewReconcileResponse(r *cashregister.Register, previous, derived decimal.Decimal, corrected bool) ReconcileResponse {
	return ReconcileResponse{
		Register:        NewRegisterResponse(r),
		PreviousBalance: money(previous),
		DerivedBalance:  money(derived),
		Corrected:       corrected,
	}
}

// money renders at least two decimal places and never drops precision
func money(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
