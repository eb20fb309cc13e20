package service

import (
	"context"
	"testing"
	"time"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc       *AuthServiceImpl
	staffRepo *mocks.MockStaffRepository
	hashSvc   *mocks.MockHashService
	tokenSvc  *mocks.MockTokenService
	ctrl      *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		staffRepo: mocks.NewMockStaffRepository(ctrl),
		hashSvc:   mocks.NewMockHashService(ctrl),
		tokenSvc:  mocks.NewMockTokenService(ctrl),
		ctrl:      ctrl,
	}
	d.svc = NewAuthService(d.staffRepo, d.hashSvc, d.tokenSvc)
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.staffRepo.EXPECT().GetByUsername(ctx, "reception1").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("s3cret-pass").Return("hashed", nil)
	d.staffRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	staff, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: "reception1",
		Password: "s3cret-pass",
		FullName: "Front Desk",
	})
	require.NoError(t, err)
	assert.Equal(t, "reception1", staff.Username)
	assert.Equal(t, "hashed", staff.PasswordHash)
	assert.Equal(t, domain.StaffRoleOperator, staff.Role, "role defaults to operator")
	assert.Equal(t, domain.StaffStatusActive, staff.Status)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	existing := &domain.Staff{ID: uuid.New(), Username: "reception1"}

	d.staffRepo.EXPECT().GetByUsername(ctx, "reception1").Return(existing, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: "reception1",
		Password: "s3cret-pass",
	})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := &domain.Staff{
		ID:           uuid.New(),
		Username:     "reception1",
		PasswordHash: "hashed",
		Role:         domain.StaffRoleAdmin,
		Status:       domain.StaffStatusActive,
	}
	expiry := time.Now().Add(time.Hour)

	d.staffRepo.EXPECT().GetByUsername(ctx, "reception1").Return(staff, nil)
	d.hashSvc.EXPECT().Verify("s3cret-pass", "hashed").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(staff.ID, domain.StaffRoleAdmin).Return("jwt-token", expiry, nil)

	token, exp, err := d.svc.Login(ctx, "reception1", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.staffRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "ghost", "whatever")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := &domain.Staff{
		ID:           uuid.New(),
		Username:     "reception1",
		PasswordHash: "hashed",
		Status:       domain.StaffStatusActive,
	}

	d.staffRepo.EXPECT().GetByUsername(ctx, "reception1").Return(staff, nil)
	d.hashSvc.EXPECT().Verify("wrong", "hashed").Return(false, nil)

	_, _, err := d.svc.Login(ctx, "reception1", "wrong")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_Suspended(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := &domain.Staff{
		ID:           uuid.New(),
		Username:     "reception1",
		PasswordHash: "hashed",
		Status:       domain.StaffStatusSuspended,
	}

	d.staffRepo.EXPECT().GetByUsername(ctx, "reception1").Return(staff, nil)
	d.hashSvc.EXPECT().Verify("s3cret-pass", "hashed").Return(true, nil)

	_, _, err := d.svc.Login(ctx, "reception1", "s3cret-pass")
	assertAppError(t, err, "AUTH_004")
}
