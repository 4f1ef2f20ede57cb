package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/pkg/money"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPartial = "partial"
	InstallmentStatusPaid    = "paid"
)

// Installment is one scheduled repayment unit of a loan's amortization
// schedule. Overdue is derived on read, never stored.
type Installment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	PrincipalPortion  decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	InterestPortion   decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	Status            string          `json:"status" db:"status"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	Notes             *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`

	// Overdue is derived at read time from DueDate and Status.
	Overdue bool `json:"overdue" db:"-"`
}

// IsPaid reports whether the installment has been fully settled.
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// Remaining returns the unpaid part of the installment's face amount,
// floored at zero.
func (i *Installment) Remaining() decimal.Decimal {
	return money.FloorZero(i.Amount.Sub(i.AmountPaid))
}

// DeriveOverdue sets the Overdue flag relative to now.
func (i *Installment) DeriveOverdue(now time.Time) {
	i.Overdue = i.Status != InstallmentStatusPaid && i.DueDate.Before(now)
}

type RegisterPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  *string         `json:"notes,omitempty"`
}
