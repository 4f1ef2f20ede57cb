package domain

import "github.com/shopspring/decimal"

// LoanStats is the portfolio KPI snapshot for one organization.
//
// TotalDisbursed sums principal over active and paid loans; TotalBalance
// sums balance over active loans; OverdueInstallments counts unpaid
// installments of active loans whose due date has passed.
type LoanStats struct {
	ActiveLoans         int             `json:"active_loans" db:"active_loans"`
	PendingLoans        int             `json:"pending_loans" db:"pending_loans"`
	PaidLoans           int             `json:"paid_loans" db:"paid_loans"`
	TotalDisbursed      decimal.Decimal `json:"total_disbursed" db:"total_disbursed"`
	TotalBalance        decimal.Decimal `json:"total_balance" db:"total_balance"`
	OverdueInstallments int             `json:"overdue_installments" db:"overdue_installments"`
}
