package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

// RegisterPayment applies an amount to one installment and recomputes the
// owning loan's ledger state.
//
// Overpaying an installment marks it paid and still debits the full amount
// from the loan balance; the surplus is not redistributed to later
// installments. Calls are not idempotent: retrying adds the amount again.
func (s *LoanService) RegisterPayment(ctx context.Context, orgID, installmentID uuid.UUID, request *domain.RegisterPaymentRequest) (*domain.Installment, error) {
	return s.registerPayment(ctx, orgID, installmentID, request, domain.PaymentSourceManual)
}

func (s *LoanService) registerPayment(ctx context.Context, orgID, installmentID uuid.UUID, request *domain.RegisterPaymentRequest, source string) (*domain.Installment, error) {
	if !request.Amount.IsPositive() {
		return nil, apperrors.WrapInvalidPayment(apperrors.ErrInvalidPayment)
	}

	installment, err := s.installmentRepo.GetByID(ctx, orgID, installmentID)
	if err != nil {
		return nil, err
	}

	loan, err := s.loanRepo.GetByID(ctx, orgID, installment.LoanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, apperrors.WrapLoanNotActive(loan.ID.String(), loan.Status)
	}

	newAmountPaid := installment.AmountPaid.Add(request.Amount)
	isFullyPaid := request.Amount.GreaterThanOrEqual(installment.Remaining())

	status := domain.InstallmentStatusPartial
	var paidAt *time.Time
	now := time.Now()
	if isFullyPaid {
		status = domain.InstallmentStatusPaid
		paidAt = &now
	}

	applied, err := s.installmentRepo.ApplyPayment(ctx, installmentID, installment.AmountPaid, newAmountPaid, status, paidAt, request.Notes)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !applied {
		// another payment landed between our read and write; the caller
		// must retry against fresh state rather than lose either payment
		return nil, apperrors.WrapConcurrentWrite(installmentID.String())
	}

	// installments_paid moves only on the transition into paid
	paidDelta := 0
	if isFullyPaid && !installment.IsPaid() {
		paidDelta = 1
	}

	// The repository refuses the debit when the loan left active between
	// our read and the write; that conflict must reach the caller as-is.
	loan, err = s.loanRepo.ApplyPayment(ctx, loan.ID, request.Amount, paidDelta, now)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		LoanID:        loan.ID,
		InstallmentID: installmentID,
		Amount:        request.Amount,
		Source:        source,
		Notes:         request.Notes,
		PaidAt:        now,
		CreatedAt:     now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// the ledger is already updated; losing the audit row is the
		// accepted non-transactional gap, surfaced to the caller
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("payment registered",
		"loan", loan.LoanNumber,
		"installment", installment.InstallmentNumber,
		"amount", request.Amount.String(),
		"source", source,
		"balance", loan.Balance.String(),
		"loan_status", loan.Status,
	)

	s.invalidateStats(ctx, orgID)

	installment, err = s.installmentRepo.GetByID(ctx, orgID, installmentID)
	if err != nil {
		return nil, err
	}
	installment.DeriveOverdue(now)

	return installment, nil
}

// ListInstallments returns a loan's schedule with the overdue flag derived
// at read time.
func (s *LoanService) ListInstallments(ctx context.Context, orgID, loanID uuid.UUID) ([]*domain.Installment, error) {
	if _, err := s.loanRepo.GetByID(ctx, orgID, loanID); err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	now := time.Now()
	for _, installment := range installments {
		installment.DeriveOverdue(now)
	}

	return installments, nil
}

// ListPayments returns the payment audit trail of a loan.
func (s *LoanService) ListPayments(ctx context.Context, orgID, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.loanRepo.GetByID(ctx, orgID, loanID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return payments, nil
}
