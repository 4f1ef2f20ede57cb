package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andalan-erp/loan-ledger/internal/config"
	"github.com/andalan-erp/loan-ledger/internal/repository"
)

// LoanService implements the employee loan ledger: origination, approval
// with idempotent schedule generation, installment-level payment
// application and portfolio stats.
type LoanService struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	paymentRepo     repository.PaymentRepository
	directory       repository.EmployeeDirectory
	cache           *redis.Client
	cfg             *config.Config
	logger          *slog.Logger
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	paymentRepo repository.PaymentRepository,
	directory repository.EmployeeDirectory,
	cache *redis.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
		directory:       directory,
		cache:           cache,
		cfg:             cfg,
		logger:          logger,
	}
}

func statsCacheKey(orgID uuid.UUID) string {
	return "loan_stats:" + orgID.String()
}

// invalidateStats drops the cached stats snapshot after a mutation. The
// cache is best-effort; failures are logged, never surfaced.
func (s *LoanService) invalidateStats(ctx context.Context, orgID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey(orgID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate stats cache", "org", orgID.String(), "error", err)
	}
}
