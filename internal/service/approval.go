package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
	"github.com/andalan-erp/loan-ledger/pkg/money"
)

// ApproveLoan transitions a requested loan to active and generates its
// amortization schedule. The status write and the schedule insert are two
// store operations; re-running ApproveLoan on an already active loan only
// re-runs the idempotent generation step, so a crash between the two is
// recovered by retrying the call.
func (s *LoanService) ApproveLoan(ctx context.Context, orgID, id, approverID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	switch loan.Status {
	case domain.LoanStatusRequested:
		now := time.Now()
		approved, err := s.loanRepo.MarkApproved(ctx, orgID, id, approverID, now)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		if !approved {
			// lost the race against a concurrent approve/reject; re-read
			// and let the active branch below settle it on retry
			return nil, apperrors.WrapConcurrentWrite(id.String())
		}

		loan, err = s.loanRepo.GetByID(ctx, orgID, id)
		if err != nil {
			return nil, err
		}

	case domain.LoanStatusActive:
		// retried approval: fall through to generation only

	default:
		return nil, apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	if err := s.generateSchedule(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.Info("loan approved", "loan", loan.LoanNumber, "approver", approverID.String())

	s.invalidateStats(ctx, orgID)

	return loan, nil
}

// RejectLoan transitions a requested loan to cancelled with the reviewer's
// reason.
func (s *LoanService) RejectLoan(ctx context.Context, orgID, id, approverID uuid.UUID, reason string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsRequested() {
		return nil, apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	rejected, err := s.loanRepo.MarkRejected(ctx, orgID, id, approverID, reason, time.Now())
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !rejected {
		return nil, apperrors.WrapConcurrentWrite(id.String())
	}

	s.invalidateStats(ctx, orgID)

	return s.loanRepo.GetByID(ctx, orgID, id)
}

// CancelLoan cancels a requested loan administratively, recording who
// cancelled it. Cancellation after activation is not supported.
func (s *LoanService) CancelLoan(ctx context.Context, orgID, id, actorID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsRequested() {
		return nil, apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	cancelled, err := s.loanRepo.MarkCancelled(ctx, orgID, id, actorID, time.Now())
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !cancelled {
		return nil, apperrors.WrapConcurrentWrite(id.String())
	}

	s.invalidateStats(ctx, orgID)

	return s.loanRepo.GetByID(ctx, orgID, id)
}

// OverrideStatus applies an externally decided terminal status (defaulted
// or written_off) to an active loan. The entry conditions for these states
// live outside this core.
func (s *LoanService) OverrideStatus(ctx context.Context, orgID, id uuid.UUID, status string) (*domain.Loan, error) {
	if status != domain.LoanStatusDefaulted && status != domain.LoanStatusWrittenOff {
		return nil, apperrors.WrapValidation(apperrors.ErrInvalidOverride)
	}

	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, apperrors.WrapLoanNotActive(id.String(), loan.Status)
	}

	overridden, err := s.loanRepo.OverrideStatus(ctx, orgID, id, status)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !overridden {
		return nil, apperrors.WrapConcurrentWrite(id.String())
	}

	s.logger.Info("loan status overridden", "loan", loan.LoanNumber, "status", status)

	s.invalidateStats(ctx, orgID)

	return s.loanRepo.GetByID(ctx, orgID, id)
}

// generateSchedule creates the loan's fixed installment set. It is
// idempotent: when any installments already exist the call is a no-op, and
// the unique (loan_id, installment_number) constraint collapses the rows of
// two generations racing past the existence check.
func (s *LoanService) generateSchedule(ctx context.Context, loan *domain.Loan) error {
	count, err := s.installmentRepo.CountByLoanID(ctx, loan.ID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	if count > 0 {
		s.logger.Debug("schedule already generated", "loan", loan.LoanNumber, "installments", count)
		return nil
	}

	// Flat division: every installment carries the same principal and
	// interest share regardless of position.
	principalPortion := money.EqualPortion(loan.Principal, loan.InstallmentsTotal)
	interestPortion := money.EqualPortion(loan.TotalInterest, loan.InstallmentsTotal)
	now := time.Now()

	installments := make([]*domain.Installment, 0, loan.InstallmentsTotal)
	for i := 1; i <= loan.InstallmentsTotal; i++ {
		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            loan.ID,
			InstallmentNumber: i,
			DueDate:           money.DueDate(loan.FirstPaymentDate, i),
			Amount:            loan.InstallmentAmount,
			PrincipalPortion:  principalPortion,
			InterestPortion:   interestPortion,
			Status:            domain.InstallmentStatusPending,
			AmountPaid:        decimal.Zero,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if err := s.installmentRepo.CreateBatch(ctx, installments); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("schedule generated", "loan", loan.LoanNumber, "installments", len(installments))

	return nil
}
