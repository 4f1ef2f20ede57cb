package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andalan-erp/loan-ledger/internal/domain"
)

type employeeDirectory struct {
	db *sqlx.DB
}

// NewEmployeeDirectory returns the directory backed by the shared employees
// table.
func NewEmployeeDirectory(db *sqlx.DB) EmployeeDirectory {
	return &employeeDirectory{db: db}
}

func (r *employeeDirectory) GetRef(ctx context.Context, orgID, employmentID uuid.UUID) (*domain.EmployeeRef, error) {
	query := `
		SELECT id AS employment_id, full_name, staff_code
		FROM employees
		WHERE organization_id = $1 AND id = $2
	`

	var ref domain.EmployeeRef
	err := r.db.GetContext(ctx, &ref, query, orgID, employmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// enrichment only; absence is not an error
			return nil, nil
		}
		return nil, err
	}

	return &ref, nil
}
