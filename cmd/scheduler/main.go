package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/andalan-erp/loan-ledger/internal/config"
	"github.com/andalan-erp/loan-ledger/internal/database"
	"github.com/andalan-erp/loan-ledger/internal/logger"
	"github.com/andalan-erp/loan-ledger/internal/repository"
	"github.com/andalan-erp/loan-ledger/internal/service"
)

// The scheduler binary runs the payroll auto-deduction job: for each
// active auto-deduct loan it pulls the next unpaid installment due in the
// pay period and registers the deduction as a payment.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slogger := logger.New(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	directory := repository.NewEmployeeDirectory(db)

	loanService := service.NewLoanService(loanRepo, installmentRepo, paymentRepo, directory, redisClient, cfg, slogger)

	location, err := time.LoadLocation(cfg.Payroll.Timezone)
	if err != nil {
		log.Fatalf("Invalid payroll timezone: %v", err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Payroll.DeductionSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		applied, err := loanService.RunPayrollDeductions(ctx, time.Now().In(location))
		if err != nil {
			slogger.Error("payroll deduction run failed", "error", err)
			return
		}
		slogger.Info("payroll deduction run finished", "applied", applied)
	})
	if err != nil {
		log.Fatalf("Failed to schedule payroll deduction job: %v", err)
	}

	c.Start()
	slogger.Info("scheduler started", "spec", cfg.Payroll.DeductionSpec, "timezone", cfg.Payroll.Timezone)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down scheduler")
	<-c.Stop().Done()
	slogger.Info("scheduler stopped")
}
