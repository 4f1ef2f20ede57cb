package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

const loanColumns = `
	id, organization_id, employment_id, loan_number, currency,
	principal, interest_rate, installments_total, total_interest,
	total_amount, installment_amount, balance, installments_paid, status,
	auto_deduct, max_deduction_pct,
	requested_at, approved_at, approved_by, rejected_at, rejected_by,
	rejection_reason, cancelled_at, cancelled_by, disbursement_date,
	first_payment_date, last_payment_date, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (
			id, organization_id, employment_id, loan_number, currency,
			principal, interest_rate, installments_total, total_interest,
			total_amount, installment_amount, balance, installments_paid, status,
			auto_deduct, max_deduction_pct, requested_at, first_payment_date,
			created_at, updated_at
		) VALUES (
			:id, :organization_id, :employment_id, :loan_number, :currency,
			:principal, :interest_rate, :installments_total, :total_interest,
			:total_amount, :installment_amount, :balance, :installments_paid, :status,
			:auto_deduct, :max_deduction_pct, :requested_at, :first_payment_date,
			:created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE organization_id = $1 AND id = $2`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(id.String())
		}
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, orgID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE organization_id = $1`
	args := []interface{}{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.EmploymentID != nil {
		args = append(args, *filter.EmploymentID)
		query += ` AND employment_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY requested_at DESC`

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) UpdateTerms(ctx context.Context, loan *domain.Loan) (bool, error) {
	query := `
		UPDATE loans
		SET principal = $1, interest_rate = $2, installments_total = $3,
			total_interest = $4, total_amount = $5, installment_amount = $6,
			balance = $7, first_payment_date = $8, auto_deduct = $9,
			max_deduction_pct = $10, updated_at = NOW()
		WHERE organization_id = $11 AND id = $12 AND status = 'requested'
	`

	result, err := r.db.ExecContext(ctx, query,
		loan.Principal,
		loan.InterestRate,
		loan.InstallmentsTotal,
		loan.TotalInterest,
		loan.TotalAmount,
		loan.InstallmentAmount,
		loan.Balance,
		loan.FirstPaymentDate,
		loan.AutoDeduct,
		loan.MaxDeductionPct,
		loan.OrganizationID,
		loan.ID,
	)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	// approved loans are never physically deleted
	query := `DELETE FROM loans WHERE organization_id = $1 AND id = $2 AND status = 'requested'`

	result, err := r.db.ExecContext(ctx, query, orgID, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) MarkApproved(ctx context.Context, orgID, id, approverID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE loans
		SET status = 'active', approved_by = $1, approved_at = $2,
			disbursement_date = $3, updated_at = NOW()
		WHERE organization_id = $4 AND id = $5 AND status = 'requested'
	`

	result, err := r.db.ExecContext(ctx, query, approverID, at, at, orgID, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) MarkRejected(ctx context.Context, orgID, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE loans
		SET status = 'cancelled', rejected_by = $1, rejected_at = $2,
			rejection_reason = $3, updated_at = NOW()
		WHERE organization_id = $4 AND id = $5 AND status = 'requested'
	`

	result, err := r.db.ExecContext(ctx, query, approverID, at, reason, orgID, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) MarkCancelled(ctx context.Context, orgID, id, actorID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE loans
		SET status = 'cancelled', cancelled_by = $1, cancelled_at = $2, updated_at = NOW()
		WHERE organization_id = $3 AND id = $4 AND status = 'requested'
	`

	result, err := r.db.ExecContext(ctx, query, actorID, at, orgID, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) OverrideStatus(ctx context.Context, orgID, id uuid.UUID, status string) (bool, error) {
	query := `
		UPDATE loans
		SET status = $1, updated_at = NOW()
		WHERE organization_id = $2 AND id = $3 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, status, orgID, id)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *loanRepository) ApplyPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paidDelta int, paidAt time.Time) (*domain.Loan, error) {
	// The decrement happens at the store so concurrent payments cannot
	// double-apply a stale balance read. The status guard keeps the write
	// off loans that left active between the service's read and this
	// statement; without it a racing override to defaulted or written_off
	// would still be debited, and the CASE could pull a terminal loan back
	// into paid.
	query := `
		UPDATE loans
		SET balance = GREATEST(balance - $1, 0),
			installments_paid = installments_paid + $2,
			status = CASE WHEN balance - $1 <= 0 THEN 'paid' ELSE status END,
			last_payment_date = $3,
			updated_at = NOW()
		WHERE id = $4 AND status = 'active'
		RETURNING ` + loanColumns

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, amount, paidDelta, paidAt, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapConcurrentWrite(loanID.String())
		}
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) NextLoanNumber(ctx context.Context, orgID uuid.UUID, year int) (int64, error) {
	query := `
		INSERT INTO loan_number_sequences (organization_id, year, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (organization_id, year)
		DO UPDATE SET counter = loan_number_sequences.counter + 1
		RETURNING counter
	`

	var counter int64
	if err := r.db.GetContext(ctx, &counter, query, orgID, year); err != nil {
		return 0, err
	}

	return counter, nil
}

func (r *loanRepository) Stats(ctx context.Context, orgID uuid.UUID, asOf time.Time) (*domain.LoanStats, error) {
	// Single aggregate pass over loans.
	loanQuery := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active')                            AS active_loans,
			COUNT(*) FILTER (WHERE status = 'requested')                         AS pending_loans,
			COUNT(*) FILTER (WHERE status = 'paid')                              AS paid_loans,
			COALESCE(SUM(principal) FILTER (WHERE status IN ('active','paid')), 0) AS total_disbursed,
			COALESCE(SUM(balance) FILTER (WHERE status = 'active'), 0)           AS total_balance
		FROM loans
		WHERE organization_id = $1
	`

	var stats domain.LoanStats
	if err := r.db.GetContext(ctx, &stats, loanQuery, orgID); err != nil {
		return nil, err
	}

	overdueQuery := `
		SELECT COUNT(*)
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.organization_id = $1
			AND l.status = 'active'
			AND i.status <> 'paid'
			AND i.due_date < $2
	`

	if err := r.db.GetContext(ctx, &stats.OverdueInstallments, overdueQuery, orgID, asOf); err != nil {
		return nil, err
	}

	return &stats, nil
}

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
