package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/response"
)

const (
	headerOrganization = "X-Organization-ID"
	headerActor        = "X-Actor-ID"
)

var (
	errMissingOrganization = errors.New("missing or invalid " + headerOrganization + " header")
	errMissingActor        = errors.New("missing or invalid " + headerActor + " header")
)

// LoanService is the ledger surface the HTTP layer depends on; implemented
// by service.LoanService.
type LoanService interface {
	CreateLoan(ctx context.Context, orgID uuid.UUID, request *domain.CreateLoanRequest) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, orgID, id uuid.UUID, request *domain.UpdateLoanRequest) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, orgID, id uuid.UUID) error
	GetLoan(ctx context.Context, orgID, id uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context, orgID uuid.UUID, filter domain.LoanFilter) ([]*domain.Loan, error)
	ApproveLoan(ctx context.Context, orgID, id, approverID uuid.UUID) (*domain.Loan, error)
	RejectLoan(ctx context.Context, orgID, id, approverID uuid.UUID, reason string) (*domain.Loan, error)
	CancelLoan(ctx context.Context, orgID, id, actorID uuid.UUID) (*domain.Loan, error)
	OverrideStatus(ctx context.Context, orgID, id uuid.UUID, status string) (*domain.Loan, error)
	ListInstallments(ctx context.Context, orgID, loanID uuid.UUID) ([]*domain.Installment, error)
	ListPayments(ctx context.Context, orgID, loanID uuid.UUID) ([]*domain.Payment, error)
	RegisterPayment(ctx context.Context, orgID, installmentID uuid.UUID, request *domain.RegisterPaymentRequest) (*domain.Installment, error)
	GetStats(ctx context.Context, orgID uuid.UUID) (*domain.LoanStats, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), orgID, &request)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Created(w, loan)
}

// ListLoans handles GET /api/v1/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	filter := domain.LoanFilter{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("employment_id"); raw != "" {
		employmentID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid employment_id", err)
			return
		}
		filter.EmploymentID = &employmentID
	}

	loans, err := h.service.ListLoans(r.Context(), orgID, filter)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), orgID, loanID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// UpdateLoan handles PUT /api/v1/loans/{loanId}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.UpdateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.UpdateLoan(r.Context(), orgID, loanID, &request)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// DeleteLoan handles DELETE /api/v1/loans/{loanId}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	if err := h.service.DeleteLoan(r.Context(), orgID, loanID); err != nil {
		response.AppError(w, err)
		return
	}

	response.NoContent(w)
}

// ApproveLoan handles POST /api/v1/loans/{loanId}/approve
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	approverID, ok := actorID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.ApproveLoan(r.Context(), orgID, loanID, approverID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// RejectLoan handles POST /api/v1/loans/{loanId}/reject
func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	approverID, ok := actorID(w, r)
	if !ok {
		return
	}

	var request domain.RejectLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.RejectLoan(r.Context(), orgID, loanID, approverID, request.Reason)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// CancelLoan handles POST /api/v1/loans/{loanId}/cancel
func (h *LoanHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	cancelledBy, ok := actorID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.CancelLoan(r.Context(), orgID, loanID, cancelledBy)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// OverrideStatus handles POST /api/v1/loans/{loanId}/status
func (h *LoanHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.OverrideStatusRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.OverrideStatus(r.Context(), orgID, loanID, request.Status)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, loan)
}

// ListInstallments handles GET /api/v1/loans/{loanId}/installments
func (h *LoanHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	installments, err := h.service.ListInstallments(r.Context(), orgID, loanID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, installments)
}

// ListPayments handles GET /api/v1/loans/{loanId}/payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), orgID, loanID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, payments)
}

// RegisterPayment handles POST /api/v1/installments/{installmentId}/payments
func (h *LoanHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	installmentID, ok := pathID(w, r, "installmentId")
	if !ok {
		return
	}

	var request domain.RegisterPaymentRequest
	if !h.decode(w, r, &request) {
		return
	}

	installment, err := h.service.RegisterPayment(r.Context(), orgID, installmentID, &request)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, installment)
}

// GetStats handles GET /api/v1/stats
func (h *LoanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(r.Context(), orgID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, stats)
}

// decode parses and validates the JSON body, writing the error response on
// failure.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return false
	}
	return true
}

func organizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(headerOrganization))
	if err != nil {
		response.BadRequest(w, errMissingOrganization.Error(), err)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(headerActor))
	if err != nil {
		response.BadRequest(w, errMissingActor.Error(), err)
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
