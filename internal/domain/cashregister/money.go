package cashregister

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amounts are stored as decimal(18,4)
const (
	MoneyScale            = 4
	MaxMoneyIntegerDigits = 14
)

// ValidateAmount checks that amount fits the ledger columns without rounding.
// Trailing zeros past the scale are accepted ("1.50000").
func ValidateAmount(field string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if exceedsScale(amount) {
		return NewValidationError(fmt.Sprintf("%s cannot have more than %d decimal places", field, MoneyScale))
	}
	if integerDigits(amount) > MaxMoneyIntegerDigits {
		return NewValidationError(fmt.Sprintf("%s cannot have more than %d integer digits", field, MaxMoneyIntegerDigits))
	}
	return nil
}

func exceedsScale(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp >= -MoneyScale {
		return false
	}
	// more dropped places than digits: a non-zero value cannot truncate cleanly
	if -MoneyScale-exp >= coefficientDigits(d) {
		return true
	}
	return !d.Equal(d.Truncate(MoneyScale))
}

func integerDigits(d decimal.Decimal) int64 {
	return coefficientDigits(d) + int64(d.Exponent())
}

func coefficientDigits(d decimal.Decimal) int64 {
	return int64(len(new(big.Int).Abs(d.Coefficient()).String()))
}
