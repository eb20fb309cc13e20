package service

import (
	"context"
	"fmt"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService for staff accounts.
type AuthServiceImpl struct {
	staffRepo ports.StaffRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	staffRepo ports.StaffRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		staffRepo: staffRepo,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
	}
}

// Register creates a new staff account.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Staff, error) {
	existing, err := s.staffRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	role := req.Role
	if role == "" {
		role = domain.StaffRoleOperator
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	staff := &domain.Staff{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         role,
		Status:       domain.StaffStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create staff: %w", err))
	}

	return staff, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	staff, err := s.staffRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.ErrStorage(fmt.Errorf("find staff: %w", err))
	}
	if staff == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, staff.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if !staff.IsActive() {
		return "", time.Time{}, apperror.ErrStaffSuspended()
	}

	token, expiry, err := s.tokenSvc.Generate(staff.ID, staff.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
