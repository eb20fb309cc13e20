package postgres

import (
	"context"
	"errors"
	"fmt"

	"clinic-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const staffColumns = `id, username, password_hash, full_name, role, status, created_at, updated_at`

// StaffRepo implements ports.StaffRepository.
type StaffRepo struct {
	pool Pool
}

// NewStaffRepo creates a new StaffRepo.
func NewStaffRepo(pool Pool) *StaffRepo {
	return &StaffRepo{pool: pool}
}

// Create inserts a new staff account.
func (r *StaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	query := `INSERT INTO staff (` + staffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Username, s.PasswordHash, s.FullName, s.Role, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// GetByID fetches a staff account by UUID.
func (r *StaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a staff account by username.
func (r *StaffRepo) GetByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE username = $1`
	return scanStaff(r.pool.QueryRow(ctx, query, username))
}

func scanStaff(row pgx.Row) (*domain.Staff, error) {
	s := &domain.Staff{}
	err := row.Scan(
		&s.ID, &s.Username, &s.PasswordHash, &s.FullName, &s.Role, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan staff: %w", err)
	}
	return s, nil
}
