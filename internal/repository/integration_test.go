package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andalan-erp/loan-ledger/internal/config"
	"github.com/andalan-erp/loan-ledger/internal/database"
	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

// These tests run against a real Postgres because the balance floor, the
// paid transition, the active-status guard and the schedule collapse live
// in SQL, not in Go. Set TEST_DATABASE_URL to enable them.
var testDB *sqlx.DB

func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		os.Exit(m.Run())
	}

	cfg := &config.Config{Database: config.DatabaseConfig{URL: url}}

	var err error
	testDB, err = sqlx.Connect("postgres", url)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to test database: %v", err))
	}

	if err := database.Migrate(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func setupTestDB(t *testing.T) *sqlx.DB {
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cleanupTestData(testDB)
	return testDB
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM loan_payments")
	db.Exec("DELETE FROM installments")
	db.Exec("DELETE FROM loans")
	db.Exec("DELETE FROM loan_number_sequences")
	db.Exec("DELETE FROM employees")
}

var seededLoans atomic.Int64

func seedLoan(t *testing.T, repo LoanRepository, orgID uuid.UUID, status string, balance decimal.Decimal) *domain.Loan {
	now := time.Now()
	loan := &domain.Loan{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		EmploymentID:      uuid.New(),
		LoanNumber:        fmt.Sprintf("EL-2025-%05d", seededLoans.Add(1)),
		Currency:          "IDR",
		Principal:         decimal.NewFromInt(1000000),
		InterestRate:      decimal.NewFromInt(24),
		InstallmentsTotal: 6,
		TotalInterest:     decimal.NewFromInt(120000),
		TotalAmount:       decimal.NewFromInt(1120000),
		InstallmentAmount: decimal.NewFromFloat(186666.67),
		Balance:           balance,
		Status:            status,
		RequestedAt:       now,
		FirstPaymentDate:  now.AddDate(0, 1, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	require.NoError(t, repo.Create(context.Background(), loan))
	return loan
}

func seedSchedule(t *testing.T, repo InstallmentRepository, loanID uuid.UUID, count int) []*domain.Installment {
	now := time.Now()
	installments := make([]*domain.Installment, 0, count)
	for i := 1; i <= count; i++ {
		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            loanID,
			InstallmentNumber: i,
			DueDate:           now.AddDate(0, i, 0),
			Amount:            decimal.NewFromFloat(186666.67),
			PrincipalPortion:  decimal.NewFromFloat(166666.67),
			InterestPortion:   decimal.NewFromInt(20000),
			Status:            domain.InstallmentStatusPending,
			AmountPaid:        decimal.Zero,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	require.NoError(t, repo.CreateBatch(context.Background(), installments))
	return installments
}

func TestLoanRepository_ApplyPayment_FloorsBalanceAndSettles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	loan := seedLoan(t, repo, orgID, domain.LoanStatusActive, decimal.NewFromInt(100000))

	// overpaying the remaining balance floors at zero instead of going
	// negative, and the loan settles
	updated, err := repo.ApplyPayment(ctx, loan.ID, decimal.NewFromInt(150000), 1, time.Now())
	require.NoError(t, err)

	assert.True(t, updated.Balance.IsZero(), "balance %v", updated.Balance)
	assert.Equal(t, domain.LoanStatusPaid, updated.Status)
	assert.Equal(t, 1, updated.InstallmentsPaid)
	assert.NotNil(t, updated.LastPaymentDate)
}

func TestLoanRepository_ApplyPayment_PartialKeepsActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	loan := seedLoan(t, repo, orgID, domain.LoanStatusActive, decimal.NewFromInt(100000))

	updated, err := repo.ApplyPayment(ctx, loan.ID, decimal.NewFromInt(40000), 0, time.Now())
	require.NoError(t, err)

	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(60000)), "balance %v", updated.Balance)
	assert.Equal(t, domain.LoanStatusActive, updated.Status)
	assert.Equal(t, 0, updated.InstallmentsPaid)
}

func TestLoanRepository_ApplyPayment_RefusesNonActiveLoan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	orgID := uuid.New()

	for _, status := range []string{domain.LoanStatusDefaulted, domain.LoanStatusWrittenOff, domain.LoanStatusRequested} {
		t.Run(status, func(t *testing.T) {
			loan := seedLoan(t, repo, orgID, status, decimal.NewFromInt(100000))

			// a debit that raced the loan out of active must not land, and
			// in particular must not pull a terminal loan back into paid
			updated, err := repo.ApplyPayment(ctx, loan.ID, decimal.NewFromInt(150000), 1, time.Now())
			require.Error(t, err)
			assert.Equal(t, apperrors.KindConcurrency, apperrors.KindOf(err))
			assert.Nil(t, updated)

			stored, err := repo.GetByID(ctx, orgID, loan.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
			assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100000)), "balance %v", stored.Balance)
		})
	}
}

func TestInstallmentRepository_CreateBatch_CollapsesDuplicateSchedules(t *testing.T) {
	db := setupTestDB(t)
	loanRepo := NewLoanRepository(db)
	installmentRepo := NewInstallmentRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	loan := seedLoan(t, loanRepo, orgID, domain.LoanStatusActive, decimal.NewFromInt(1120000))

	seedSchedule(t, installmentRepo, loan.ID, 6)

	// a second generation racing past the existence check collapses on the
	// (loan_id, installment_number) constraint instead of duplicating rows
	seedSchedule(t, installmentRepo, loan.ID, 6)

	count, err := installmentRepo.CountByLoanID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestInstallmentRepository_ApplyPayment_StaleAmountGuard(t *testing.T) {
	db := setupTestDB(t)
	loanRepo := NewLoanRepository(db)
	installmentRepo := NewInstallmentRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	loan := seedLoan(t, loanRepo, orgID, domain.LoanStatusActive, decimal.NewFromInt(1120000))
	installments := seedSchedule(t, installmentRepo, loan.ID, 1)
	installment := installments[0]

	applied, err := installmentRepo.ApplyPayment(ctx, installment.ID,
		decimal.Zero, decimal.NewFromInt(40000), domain.InstallmentStatusPartial, nil, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	// a write carrying the pre-payment amount_paid is stale and must not land
	applied, err = installmentRepo.ApplyPayment(ctx, installment.ID,
		decimal.Zero, decimal.NewFromInt(60000), domain.InstallmentStatusPartial, nil, nil)
	require.NoError(t, err)
	assert.False(t, applied)

	// the fresh amount_paid goes through
	now := time.Now()
	applied, err = installmentRepo.ApplyPayment(ctx, installment.ID,
		decimal.NewFromInt(40000), decimal.NewFromFloat(186666.67), domain.InstallmentStatusPaid, &now, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := installmentRepo.GetByID(ctx, orgID, installment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, stored.Status)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromFloat(186666.67)), "amount paid %v", stored.AmountPaid)
	assert.NotNil(t, stored.PaidAt)
}

func TestLoanRepository_NextLoanNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	orgID := uuid.New()

	first, err := repo.NextLoanNumber(ctx, orgID, 2025)
	require.NoError(t, err)
	second, err := repo.NextLoanNumber(ctx, orgID, 2025)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	// counters are independent per year and per organization
	nextYear, err := repo.NextLoanNumber(ctx, orgID, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nextYear)

	otherOrg, err := repo.NextLoanNumber(ctx, uuid.New(), 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), otherOrg)
}
