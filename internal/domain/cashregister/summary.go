package cashregister

import "github.com/shopspring/decimal"

// MethodTotals is income and expense of one payment method
type MethodTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// RegisterSummary is the closing report of a register
type RegisterSummary struct {
	Register        *Register
	TotalIncome     decimal.Decimal
	TotalExpense    decimal.Decimal
	ExpectedBalance decimal.Decimal
	Drift           decimal.Decimal // CurrentAmount minus ExpectedBalance
	MovementCount   int
	ByPaymentMethod map[PaymentMethod]MethodTotals
}

// IsBalanced reports whether the stored balance matches the movements
func (s *RegisterSummary) IsBalanced() bool {
	return s.Drift.IsZero()
}

// Summarize builds the closing report of register from its movements.
// Movements of other registers are ignored.
func Summarize(register *Register, movements []*Movement) *RegisterSummary {
	summary := &RegisterSummary{
		Register:        register,
		TotalIncome:     decimal.Zero,
		TotalExpense:    decimal.Zero,
		ByPaymentMethod: make(map[PaymentMethod]MethodTotals),
	}

	for _, m := range movements {
		if m == nil || m.CashRegisterID != register.ID {
			continue
		}
		summary.MovementCount++

		mt := summary.ByPaymentMethod[m.PaymentMethod]
		switch m.Type {
		case MovementTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(m.Amount)
			mt.Income = mt.Income.Add(m.Amount)
		case MovementTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(m.Amount)
			mt.Expense = mt.Expense.Add(m.Amount)
		}
		mt.Net = mt.Income.Sub(mt.Expense)
		summary.ByPaymentMethod[m.PaymentMethod] = mt
	}

	summary.ExpectedBalance = register.ExpectedBalance(MovementTotals{
		Income:  summary.TotalIncome,
		Expense: summary.TotalExpense,
		Count:   int64(summary.MovementCount),
	})
	summary.Drift = register.CurrentAmount.Sub(summary.ExpectedBalance)
	return summary
}
