package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AutoDeduction is one payroll deduction candidate: the earliest unpaid
// installment, due on or before the pay date, of an active auto-deduct loan.
type AutoDeduction struct {
	OrganizationID    uuid.UUID       `json:"organization_id" db:"organization_id"`
	LoanID            uuid.UUID       `json:"loan_id" db:"loan_id"`
	LoanNumber        string          `json:"loan_number" db:"loan_number"`
	InstallmentID     uuid.UUID       `json:"installment_id" db:"installment_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	Remaining         decimal.Decimal `json:"remaining" db:"remaining"`
}
