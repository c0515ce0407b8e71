package cashregister

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Denomination is a count of notes or coins of one face value
type Denomination struct {
	Value    decimal.Decimal
	Quantity int
}

// Total returns value times quantity
func (d Denomination) Total() decimal.Decimal {
	return d.Value.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// OpeningDetails is operator metadata captured when a register is opened.
// It is not interpreted beyond the denomination check.
type OpeningDetails struct {
	OperatorID    string
	OperatorName  string
	Denominations []Denomination
	PendingChange bool
	Notes         string
}

// DenominationTotal sums every denomination line
func (o OpeningDetails) DenominationTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Denominations {
		total = total.Add(d.Total())
	}
	return total
}

// Validate checks the breakdown against the declared opening amount.
// An empty breakdown is accepted as is.
func (o OpeningDetails) Validate(initialAmount decimal.Decimal) error {
	if len(o.Denominations) == 0 {
		return nil
	}
	for i, d := range o.Denominations {
		if !d.Value.IsPositive() {
			return NewValidationError(fmt.Sprintf("denominations[%d]: value must be positive", i))
		}
		if err := ValidateAmount(fmt.Sprintf("denominations[%d]: value", i), d.Value); err != nil {
			return err
		}
		if d.Quantity < 0 {
			return NewValidationError(fmt.Sprintf("denominations[%d]: quantity cannot be negative", i))
		}
	}
	if total := o.DenominationTotal(); !total.Equal(initialAmount) {
		return NewValidationError(fmt.Sprintf(
			"denomination breakdown totals %s but initial amount is %s",
			total.StringFixed(2), initialAmount.StringFixed(2),
		))
	}
	return nil
}
