package money

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// FlatInterest computes total interest under the flat scheme:
// principal * annualRate * installments / 100 / 12.
//
// Interest scales with the number of installments, not elapsed time, and is
// not recomputed on a shrinking balance. This mirrors the payroll ledger's
// historical behavior and is kept deliberately.
func FlatInterest(principal, annualRatePct decimal.Decimal, installments int) decimal.Decimal {
	n := decimal.NewFromInt(int64(installments))
	return principal.Mul(annualRatePct).Mul(n).Div(hundred).Div(twelve).Round(2)
}

// InstallmentAmount divides the total repayable amount into equal
// installments, rounded to currency precision.
func InstallmentAmount(totalAmount decimal.Decimal, installments int) decimal.Decimal {
	return totalAmount.Div(decimal.NewFromInt(int64(installments))).Round(2)
}

// EqualPortion splits an amount evenly across installments. Every
// installment carries the same share regardless of position.
func EqualPortion(amount decimal.Decimal, installments int) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(int64(installments))).Round(2)
}

// DueDate returns the due date of installment number n (1-based):
// firstPaymentDate plus n-1 months.
func DueDate(firstPaymentDate time.Time, n int) time.Time {
	return firstPaymentDate.AddDate(0, n-1, 0)
}

// FloorZero clamps a negative amount to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
