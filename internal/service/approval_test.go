package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

func requestedLoan(orgID uuid.UUID) *domain.Loan {
	return &domain.Loan{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		EmploymentID:      uuid.New(),
		LoanNumber:        "EL-2025-00001",
		Currency:          "IDR",
		Principal:         decimal.NewFromInt(1000000),
		InterestRate:      decimal.NewFromInt(24),
		InstallmentsTotal: 6,
		TotalInterest:     decimal.NewFromInt(120000),
		TotalAmount:       decimal.NewFromInt(1120000),
		InstallmentAmount: decimal.NewFromFloat(186666.67),
		Balance:           decimal.NewFromInt(1120000),
		Status:            domain.LoanStatusRequested,
		FirstPaymentDate:  firstPayment(),
	}
}

func TestApproveLoan_GeneratesSchedule(t *testing.T) {
	svc, loanRepo, installmentRepo, _, _ := newTestService()

	orgID := uuid.New()
	approverID := uuid.New()
	loan := requestedLoan(orgID)

	activated := *loan
	activated.Status = domain.LoanStatusActive

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil).Once()
	loanRepo.On("MarkApproved", mock.Anything, orgID, loan.ID, approverID, mock.AnythingOfType("time.Time")).Return(true, nil)
	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(&activated, nil)
	installmentRepo.On("CountByLoanID", mock.Anything, loan.ID).Return(0, nil)
	installmentRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(installments []*domain.Installment) bool {
		if len(installments) != 6 {
			return false
		}
		for i, installment := range installments {
			if installment.InstallmentNumber != i+1 {
				return false
			}
			if !installment.Amount.Equal(decimal.NewFromFloat(186666.67)) {
				return false
			}
			if !installment.AmountPaid.IsZero() || installment.Status != domain.InstallmentStatusPending {
				return false
			}
		}
		// due dates advance one calendar month per installment
		return installments[0].DueDate.Equal(firstPayment()) &&
			installments[5].DueDate.Equal(firstPayment().AddDate(0, 5, 0))
	})).Return(nil)

	got, err := svc.ApproveLoan(context.Background(), orgID, loan.ID, approverID)

	assert.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, got.Status)
	loanRepo.AssertExpectations(t)
	installmentRepo.AssertExpectations(t)
}

func TestApproveLoan_RetryOnActiveLoanIsIdempotent(t *testing.T) {
	svc, loanRepo, installmentRepo, _, _ := newTestService()

	orgID := uuid.New()
	approverID := uuid.New()
	loan := requestedLoan(orgID)
	loan.Status = domain.LoanStatusActive

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil)
	installmentRepo.On("CountByLoanID", mock.Anything, loan.ID).Return(6, nil)

	got, err := svc.ApproveLoan(context.Background(), orgID, loan.ID, approverID)

	assert.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, got.Status)
	loanRepo.AssertNotCalled(t, "MarkApproved", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	installmentRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestApproveLoan_TerminalStatus(t *testing.T) {
	for _, status := range []string{domain.LoanStatusCancelled, domain.LoanStatusPaid, domain.LoanStatusDefaulted} {
		t.Run(status, func(t *testing.T) {
			svc, loanRepo, installmentRepo, _, _ := newTestService()

			orgID := uuid.New()
			loan := requestedLoan(orgID)
			loan.Status = status

			loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil)

			got, err := svc.ApproveLoan(context.Background(), orgID, loan.ID, uuid.New())

			assert.Error(t, err)
			assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))
			assert.Nil(t, got)
			installmentRepo.AssertNotCalled(t, "CountByLoanID", mock.Anything, mock.Anything)
		})
	}
}

func TestApproveLoan_LostRace(t *testing.T) {
	svc, loanRepo, _, _, _ := newTestService()

	orgID := uuid.New()
	loan := requestedLoan(orgID)

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil)
	loanRepo.On("MarkApproved", mock.Anything, orgID, loan.ID, mock.Anything, mock.AnythingOfType("time.Time")).Return(false, nil)

	got, err := svc.ApproveLoan(context.Background(), orgID, loan.ID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, apperrors.KindConcurrency, apperrors.KindOf(err))
	assert.Nil(t, got)
}

func TestRejectLoan(t *testing.T) {
	svc, loanRepo, _, _, _ := newTestService()

	orgID := uuid.New()
	approverID := uuid.New()
	loan := requestedLoan(orgID)

	reason := "exceeds salary multiple policy"
	rejected := *loan
	rejected.Status = domain.LoanStatusCancelled
	rejected.RejectionReason = &reason

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil).Once()
	loanRepo.On("MarkRejected", mock.Anything, orgID, loan.ID, approverID, reason, mock.AnythingOfType("time.Time")).Return(true, nil)
	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(&rejected, nil)

	got, err := svc.RejectLoan(context.Background(), orgID, loan.ID, approverID, reason)

	assert.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, got.Status)
	assert.Equal(t, &reason, got.RejectionReason)
	loanRepo.AssertExpectations(t)
}

func TestRejectLoan_ActiveLoan(t *testing.T) {
	svc, loanRepo, _, _, _ := newTestService()

	orgID := uuid.New()
	loan := requestedLoan(orgID)
	loan.Status = domain.LoanStatusActive

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil)

	got, err := svc.RejectLoan(context.Background(), orgID, loan.ID, uuid.New(), "too late")

	assert.Error(t, err)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))
	assert.Nil(t, got)
	loanRepo.AssertNotCalled(t, "MarkRejected", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelLoan(t *testing.T) {
	svc, loanRepo, _, _, _ := newTestService()

	orgID := uuid.New()
	actorID := uuid.New()
	loan := requestedLoan(orgID)

	cancelled := *loan
	cancelled.Status = domain.LoanStatusCancelled
	cancelled.CancelledBy = &actorID

	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil).Once()
	loanRepo.On("MarkCancelled", mock.Anything, orgID, loan.ID, actorID, mock.AnythingOfType("time.Time")).Return(true, nil)
	loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(&cancelled, nil)

	got, err := svc.CancelLoan(context.Background(), orgID, loan.ID, actorID)

	assert.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, got.Status)
	assert.Equal(t, &actorID, got.CancelledBy)
	loanRepo.AssertExpectations(t)
}

func TestOverrideStatus(t *testing.T) {
	orgID := uuid.New()

	tests := []struct {
		name          string
		loanStatus    string
		target        string
		expectedError bool
		errorKind     apperrors.Kind
	}{
		{
			name:       "Success - active to defaulted",
			loanStatus: domain.LoanStatusActive,
			target:     domain.LoanStatusDefaulted,
		},
		{
			name:       "Success - active to written off",
			loanStatus: domain.LoanStatusActive,
			target:     domain.LoanStatusWrittenOff,
		},
		{
			name:          "Failure - arbitrary status rejected",
			loanStatus:    domain.LoanStatusActive,
			target:        domain.LoanStatusPaid,
			expectedError: true,
			errorKind:     apperrors.KindValidation,
		},
		{
			name:          "Failure - requested loan has no ledger",
			loanStatus:    domain.LoanStatusRequested,
			target:        domain.LoanStatusDefaulted,
			expectedError: true,
			errorKind:     apperrors.KindState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, loanRepo, _, _, _ := newTestService()

			loan := requestedLoan(orgID)
			loan.Status = tt.loanStatus

			if tt.errorKind != apperrors.KindValidation {
				loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(loan, nil).Once()
			}
			if !tt.expectedError {
				overridden := *loan
				overridden.Status = tt.target
				loanRepo.On("OverrideStatus", mock.Anything, orgID, loan.ID, tt.target).Return(true, nil)
				loanRepo.On("GetByID", mock.Anything, orgID, loan.ID).Return(&overridden, nil)
			}

			got, err := svc.OverrideStatus(context.Background(), orgID, loan.ID, tt.target)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorKind, apperrors.KindOf(err))
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.target, got.Status)
			}

			loanRepo.AssertExpectations(t)
		})
	}
}
