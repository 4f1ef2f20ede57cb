package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusRequested  = "requested"
	LoanStatusActive     = "active"
	LoanStatusPaid       = "paid"
	LoanStatusCancelled  = "cancelled"
	LoanStatusDefaulted  = "defaulted"
	LoanStatusWrittenOff = "written_off"
)

// Loan represents an employee loan and its repayment ledger state.
type Loan struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	EmploymentID   uuid.UUID       `json:"employment_id" db:"employment_id"`
	LoanNumber     string          `json:"loan_number" db:"loan_number"`
	Currency       string          `json:"currency" db:"currency"`
	Principal      decimal.Decimal `json:"principal" db:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	// InstallmentsTotal is the fixed number of repayment installments.
	InstallmentsTotal int             `json:"installments_total" db:"installments_total"`
	TotalInterest     decimal.Decimal `json:"total_interest" db:"total_interest"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	InstallmentsPaid  int             `json:"installments_paid" db:"installments_paid"`
	Status            string          `json:"status" db:"status"`

	AutoDeduct      bool            `json:"auto_deduct" db:"auto_deduct"`
	MaxDeductionPct decimal.Decimal `json:"max_deduction_pct" db:"max_deduction_pct"`

	RequestedAt      time.Time  `json:"requested_at" db:"requested_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy       *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectedBy       *uuid.UUID `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectionReason  *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy      *uuid.UUID `json:"cancelled_by,omitempty" db:"cancelled_by"`
	DisbursementDate *time.Time `json:"disbursement_date,omitempty" db:"disbursement_date"`
	FirstPaymentDate time.Time  `json:"first_payment_date" db:"first_payment_date"`
	LastPaymentDate  *time.Time `json:"last_payment_date,omitempty" db:"last_payment_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Employee is directory enrichment, populated on reads only.
	Employee *EmployeeRef `json:"employee,omitempty" db:"-"`
}

// IsRequested reports whether origination mutations are still allowed.
func (l *Loan) IsRequested() bool {
	return l.Status == LoanStatusRequested
}

// IsActive reports whether payments may be applied against the loan.
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// EmployeeRef is the directory projection attached to loan reads. Joined
// directory output never reaches ledger logic in any other shape.
type EmployeeRef struct {
	EmploymentID uuid.UUID `json:"employment_id" db:"employment_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	StaffCode    string    `json:"staff_code" db:"staff_code"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	EmploymentID      uuid.UUID       `json:"employment_id" validate:"required"`
	Currency          string          `json:"currency" validate:"required,len=3"`
	Principal         decimal.Decimal `json:"principal" validate:"required"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	InstallmentsTotal int             `json:"installments_total" validate:"required,gte=1"`
	FirstPaymentDate  time.Time       `json:"first_payment_date" validate:"required"`
	AutoDeduct        bool            `json:"auto_deduct"`
	MaxDeductionPct   decimal.Decimal `json:"max_deduction_pct"`
}

type UpdateLoanRequest struct {
	Principal         decimal.Decimal `json:"principal" validate:"required"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	InstallmentsTotal int             `json:"installments_total" validate:"required,gte=1"`
	FirstPaymentDate  time.Time       `json:"first_payment_date" validate:"required"`
	AutoDeduct        bool            `json:"auto_deduct"`
	MaxDeductionPct   decimal.Decimal `json:"max_deduction_pct"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type OverrideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=defaulted written_off"`
}

// LoanFilter narrows ListLoans results.
type LoanFilter struct {
	Status       string
	EmploymentID *uuid.UUID
}
