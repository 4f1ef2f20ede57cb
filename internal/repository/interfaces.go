package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/internal/domain"
)

// LoanRepository defines the interface for loan data operations. Every
// operation is scoped to an organization; a loan outside the caller's
// organization behaves as not found.
type LoanRepository interface {
	// Create stores a new loan in requested state
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan within the organization scope
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Loan, error)

	// List retrieves loans matching the filter
	List(ctx context.Context, orgID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error)

	// UpdateTerms rewrites the loan terms; succeeds only while the loan is
	// still requested
	UpdateTerms(ctx context.Context, loan *domain.Loan) (bool, error)

	// Delete removes a requested loan
	Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error)

	// MarkApproved transitions requested -> active with approval metadata
	MarkApproved(ctx context.Context, orgID, id, approverID uuid.UUID, at time.Time) (bool, error)

	// MarkRejected transitions requested -> cancelled with rejection metadata
	MarkRejected(ctx context.Context, orgID, id, approverID uuid.UUID, reason string, at time.Time) (bool, error)

	// MarkCancelled transitions requested -> cancelled administratively,
	// recording the acting admin
	MarkCancelled(ctx context.Context, orgID, id, actorID uuid.UUID, at time.Time) (bool, error)

	// OverrideStatus applies an externally driven terminal status
	// (defaulted, written_off) to an active loan
	OverrideStatus(ctx context.Context, orgID, id uuid.UUID, status string) (bool, error)

	// ApplyPayment decrements the balance atomically at the store level,
	// bumps installments_paid and flips status to paid when the balance
	// reaches zero. The write requires the loan to still be active; a loan
	// that left active since the caller's read surfaces as a concurrency
	// conflict
	ApplyPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paidDelta int, paidAt time.Time) (*domain.Loan, error)

	// NextLoanNumber increments and returns the per-(organization, year)
	// loan number counter
	NextLoanNumber(ctx context.Context, orgID uuid.UUID, year int) (int64, error)

	// Stats computes the portfolio KPI snapshot in aggregate queries
	Stats(ctx context.Context, orgID uuid.UUID, asOf time.Time) (*domain.LoanStats, error)
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// CreateBatch inserts a full schedule in one transaction; rows that
	// collide on (loan_id, installment_number) are skipped silently
	CreateBatch(ctx context.Context, installments []*domain.Installment) error

	// CountByLoanID returns how many installments exist for a loan
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error)

	// ListByLoanID returns the schedule ordered by installment number
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// GetByID retrieves an installment whose owning loan belongs to the
	// organization
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Installment, error)

	// ApplyPayment updates the installment's paid state conditionally on
	// the amount_paid value the caller read; returns false when that value
	// is stale
	ApplyPayment(ctx context.Context, id uuid.UUID, priorAmountPaid, newAmountPaid decimal.Decimal, status string, paidAt *time.Time, notes *string) (bool, error)

	// NextAutoDeductDue returns, per active auto-deduct loan, the earliest
	// unpaid installment due on or before asOf
	NextAutoDeductDue(ctx context.Context, asOf time.Time) ([]*domain.AutoDeduction, error)
}

// PaymentRepository defines the interface for payment audit records
type PaymentRepository interface {
	// Create appends a payment audit row
	Create(ctx context.Context, payment *domain.Payment) error

	// ListByLoanID retrieves all payments applied to a loan
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
}

// EmployeeDirectory resolves employment references for read-side
// enrichment. Lookups never affect ledger correctness; a missing employee
// yields nil, nil.
type EmployeeDirectory interface {
	GetRef(ctx context.Context, orgID, employmentID uuid.UUID) (*domain.EmployeeRef, error)
}
