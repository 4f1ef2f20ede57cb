package service

import (
	"context"
	"time"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

// RunPayrollDeductions pulls, for every active auto-deduct loan, the
// earliest unpaid installment due on or before asOf and registers its
// remaining amount as a payroll payment. One failing deduction does not
// stop the run; the number of applied deductions is returned.
func (s *LoanService) RunPayrollDeductions(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.installmentRepo.NextAutoDeductDue(ctx, asOf)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	notes := "payroll auto-deduction"
	applied := 0
	for _, deduction := range due {
		if !deduction.Remaining.IsPositive() {
			continue
		}

		request := &domain.RegisterPaymentRequest{
			Amount: deduction.Remaining,
			Notes:  &notes,
		}

		if _, err := s.registerPayment(ctx, deduction.OrganizationID, deduction.InstallmentID, request, domain.PaymentSourcePayroll); err != nil {
			s.logger.Error("payroll deduction failed",
				"loan", deduction.LoanNumber,
				"installment", deduction.InstallmentNumber,
				"error", err,
			)
			continue
		}
		applied++
	}

	s.logger.Info("payroll deduction run complete", "candidates", len(due), "applied", applied)

	return applied, nil
}
