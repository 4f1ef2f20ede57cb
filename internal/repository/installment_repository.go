package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

const installmentColumns = `
	id, loan_id, installment_number, due_date, amount, principal_portion,
	interest_portion, status, amount_paid, paid_at, notes, created_at, updated_at`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	// ON CONFLICT backs the existence check in the service: two racing
	// approvals both insert, the loser's rows collapse against the unique
	// (loan_id, installment_number) constraint.
	query := `
		INSERT INTO installments (
			id, loan_id, installment_number, due_date, amount,
			principal_portion, interest_portion, status, amount_paid,
			created_at, updated_at
		) VALUES (
			:id, :loan_id, :installment_number, :due_date, :amount,
			:principal_portion, :interest_portion, :status, :amount_paid,
			:created_at, :updated_at
		)
		ON CONFLICT (loan_id, installment_number) DO NOTHING
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, installment := range installments {
		if _, err = tx.NamedExecContext(ctx, query, installment); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *installmentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM installments WHERE loan_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, loanID); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *installmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM installments
		WHERE loan_id = $1
		ORDER BY installment_number`

	installments := []*domain.Installment{}
	if err := r.db.SelectContext(ctx, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Installment, error) {
	query := `
		SELECT i.id, i.loan_id, i.installment_number, i.due_date, i.amount,
			i.principal_portion, i.interest_portion, i.status, i.amount_paid,
			i.paid_at, i.notes, i.created_at, i.updated_at
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.organization_id = $1 AND i.id = $2
	`

	var installment domain.Installment
	err := r.db.GetContext(ctx, &installment, query, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapInstallmentNotFound(id.String())
		}
		return nil, err
	}

	return &installment, nil
}

func (r *installmentRepository) ApplyPayment(ctx context.Context, id uuid.UUID, priorAmountPaid, newAmountPaid decimal.Decimal, status string, paidAt *time.Time, notes *string) (bool, error) {
	// The amount_paid guard is the optimistic concurrency check: a
	// concurrent payment that landed between read and write leaves zero
	// rows affected and the caller surfaces the conflict.
	query := `
		UPDATE installments
		SET amount_paid = $1,
			status = $2,
			paid_at = COALESCE(paid_at, $3),
			notes = CASE WHEN $4::text IS NULL THEN notes
				ELSE TRIM(BOTH E'\n' FROM COALESCE(notes, '') || E'\n' || $4) END,
			updated_at = NOW()
		WHERE id = $5 AND amount_paid = $6
	`

	result, err := r.db.ExecContext(ctx, query, newAmountPaid, status, paidAt, notes, id, priorAmountPaid)
	if err != nil {
		return false, err
	}

	return rowsAffected(result)
}

func (r *installmentRepository) NextAutoDeductDue(ctx context.Context, asOf time.Time) ([]*domain.AutoDeduction, error) {
	query := `
		SELECT DISTINCT ON (i.loan_id)
			l.organization_id, i.loan_id, l.loan_number, i.id AS installment_id,
			i.installment_number, i.amount - i.amount_paid AS remaining
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.status = 'active'
			AND l.auto_deduct = TRUE
			AND i.status <> 'paid'
			AND i.due_date <= $1
		ORDER BY i.loan_id, i.installment_number
	`

	due := []*domain.AutoDeduction{}
	if err := r.db.SelectContext(ctx, &due, query, asOf); err != nil {
		return nil, err
	}

	return due, nil
}
