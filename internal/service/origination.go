package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
	"github.com/andalan-erp/loan-ledger/pkg/money"
)

// CreateLoan validates the request, derives the flat-interest totals and
// stores a new loan in requested state. No installments exist yet.
func (s *LoanService) CreateLoan(ctx context.Context, orgID uuid.UUID, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if err := validateTerms(request.Principal, request.InterestRate, request.InstallmentsTotal, request.FirstPaymentDate); err != nil {
		return nil, err
	}

	now := time.Now()

	number, err := s.loanRepo.NextLoanNumber(ctx, orgID, now.Year())
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	totalInterest := money.FlatInterest(request.Principal, request.InterestRate, request.InstallmentsTotal)
	totalAmount := request.Principal.Add(totalInterest)

	loan := &domain.Loan{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		EmploymentID:      request.EmploymentID,
		LoanNumber:        fmt.Sprintf("%s-%d-%05d", s.cfg.Ledger.LoanNumberPrefix, now.Year(), number),
		Currency:          request.Currency,
		Principal:         request.Principal,
		InterestRate:      request.InterestRate,
		InstallmentsTotal: request.InstallmentsTotal,
		TotalInterest:     totalInterest,
		TotalAmount:       totalAmount,
		InstallmentAmount: money.InstallmentAmount(totalAmount, request.InstallmentsTotal),
		Balance:           totalAmount,
		InstallmentsPaid:  0,
		Status:            domain.LoanStatusRequested,
		AutoDeduct:        request.AutoDeduct,
		MaxDeductionPct:   request.MaxDeductionPct,
		RequestedAt:       now,
		FirstPaymentDate:  request.FirstPaymentDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("loan created",
		"loan", loan.LoanNumber,
		"org", orgID.String(),
		"principal", loan.Principal.String(),
		"installments", loan.InstallmentsTotal,
	)

	s.invalidateStats(ctx, orgID)

	return loan, nil
}

// UpdateLoan rewrites the terms of a loan that is still requested. Terms
// are frozen from the moment a schedule can be generated.
func (s *LoanService) UpdateLoan(ctx context.Context, orgID, id uuid.UUID, request *domain.UpdateLoanRequest) (*domain.Loan, error) {
	if err := validateTerms(request.Principal, request.InterestRate, request.InstallmentsTotal, request.FirstPaymentDate); err != nil {
		return nil, err
	}

	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsRequested() {
		return nil, apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	totalInterest := money.FlatInterest(request.Principal, request.InterestRate, request.InstallmentsTotal)
	totalAmount := request.Principal.Add(totalInterest)

	loan.Principal = request.Principal
	loan.InterestRate = request.InterestRate
	loan.InstallmentsTotal = request.InstallmentsTotal
	loan.TotalInterest = totalInterest
	loan.TotalAmount = totalAmount
	loan.InstallmentAmount = money.InstallmentAmount(totalAmount, request.InstallmentsTotal)
	loan.Balance = totalAmount
	loan.FirstPaymentDate = request.FirstPaymentDate
	loan.AutoDeduct = request.AutoDeduct
	loan.MaxDeductionPct = request.MaxDeductionPct

	updated, err := s.loanRepo.UpdateTerms(ctx, loan)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if !updated {
		// the loan left requested state between read and write
		return nil, apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	return loan, nil
}

// DeleteLoan removes a loan that is still requested. Approved loans are
// never physically deleted.
func (s *LoanService) DeleteLoan(ctx context.Context, orgID, id uuid.UUID) error {
	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !loan.IsRequested() {
		return apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	deleted, err := s.loanRepo.Delete(ctx, orgID, id)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	if !deleted {
		return apperrors.WrapLoanNotRequested(id.String(), loan.Status)
	}

	s.invalidateStats(ctx, orgID)

	return nil
}

// GetLoan returns one loan enriched with the employee directory projection.
func (s *LoanService) GetLoan(ctx context.Context, orgID, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	s.enrich(ctx, orgID, loan)

	return loan, nil
}

// ListLoans returns the organization's loans matching the filter.
func (s *LoanService) ListLoans(ctx context.Context, orgID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error) {
	loans, err := s.loanRepo.List(ctx, orgID, filter)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	for _, loan := range loans {
		s.enrich(ctx, orgID, loan)
	}

	return loans, nil
}

func validateTerms(principal, rate decimal.Decimal, installments int, firstPaymentDate time.Time) error {
	if !principal.IsPositive() {
		return apperrors.WrapValidation(apperrors.ErrInvalidPrincipal)
	}
	if rate.IsNegative() {
		return apperrors.WrapValidation(apperrors.ErrInvalidInterestRate)
	}
	if installments < 1 {
		return apperrors.WrapValidation(apperrors.ErrInvalidInstallments)
	}
	if firstPaymentDate.IsZero() {
		return apperrors.WrapValidation(apperrors.ErrMissingPaymentDate)
	}
	return nil
}

// enrich attaches the directory projection. Directory failures degrade to
// an unenriched loan; they never fail the read.
func (s *LoanService) enrich(ctx context.Context, orgID uuid.UUID, loan *domain.Loan) {
	ref, err := s.directory.GetRef(ctx, orgID, loan.EmploymentID)
	if err != nil {
		s.logger.Warn("directory lookup failed", "employment", loan.EmploymentID.String(), "error", err)
		return
	}
	loan.Employee = ref
}
