package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/andalan-erp/loan-ledger/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context, orgID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateTerms(ctx context.Context, loan *domain.Loan) (bool, error) {
	args := m.Called(ctx, loan)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) MarkApproved(ctx context.Context, orgID, id, approverID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, approverID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) MarkRejected(ctx context.Context, orgID, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, approverID, reason, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) MarkCancelled(ctx context.Context, orgID, id, actorID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, actorID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) OverrideStatus(ctx context.Context, orgID, id uuid.UUID, status string) (bool, error) {
	args := m.Called(ctx, orgID, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) ApplyPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paidDelta int, paidAt time.Time) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, amount, paidDelta, paidAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) NextLoanNumber(ctx context.Context, orgID uuid.UUID, year int) (int64, error) {
	args := m.Called(ctx, orgID, year)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) Stats(ctx context.Context, orgID uuid.UUID, asOf time.Time) (*domain.LoanStats, error) {
	args := m.Called(ctx, orgID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanStats), args.Error(1)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error) {
	args := m.Called(ctx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockInstallmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Installment, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ApplyPayment(ctx context.Context, id uuid.UUID, priorAmountPaid, newAmountPaid decimal.Decimal, status string, paidAt *time.Time, notes *string) (bool, error) {
	args := m.Called(ctx, id, priorAmountPaid, newAmountPaid, status, paidAt, notes)
	return args.Bool(0), args.Error(1)
}

func (m *MockInstallmentRepository) NextAutoDeductDue(ctx context.Context, asOf time.Time) ([]*domain.AutoDeduction, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AutoDeduction), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockEmployeeDirectory struct {
	mock.Mock
}

func (m *MockEmployeeDirectory) GetRef(ctx context.Context, orgID, employmentID uuid.UUID) (*domain.EmployeeRef, error) {
	args := m.Called(ctx, orgID, employmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmployeeRef), args.Error(1)
}
