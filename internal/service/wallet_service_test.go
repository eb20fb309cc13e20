package service

import (
	"context"
	"testing"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	encSvc     *mocks.MockEncryptionService
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		encSvc:     mocks.NewMockEncryptionService(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.encSvc, zerolog.Nop())
	return d
}

func TestWalletService_CreateWallet_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	patientID := uuid.New()
	phone := "+84901234567"

	d.walletRepo.EXPECT().GetByPatientID(ctx, patientID).Return(nil, nil)
	d.encSvc.EXPECT().Encrypt(phone).Return("enc_phone", nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	wallet, err := d.svc.CreateWallet(ctx, ports.CreateWalletRequest{
		PatientID:   patientID,
		PatientName: "Jane Doe",
		Phone:       &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, patientID, wallet.PatientID)
	assert.True(t, wallet.Balance.IsZero(), "new wallet starts at zero")
	assert.True(t, wallet.Active)
	require.NotNil(t, wallet.PhoneEnc)
	assert.Equal(t, "enc_phone", *wallet.PhoneEnc)
}

func TestWalletService_CreateWallet_DuplicatePatient(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	patientID := uuid.New()
	existing := domain.NewWallet(patientID, "Jane Doe")

	d.walletRepo.EXPECT().GetByPatientID(ctx, patientID).Return(existing, nil)

	_, err := d.svc.CreateWallet(ctx, ports.CreateWalletRequest{
		PatientID:   patientID,
		PatientName: "Jane Doe",
	})
	assertAppError(t, err, "WLT_002")
}

func TestWalletService_CreateWallet_RaceOnUniqueIndex(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	patientID := uuid.New()

	d.walletRepo.EXPECT().GetByPatientID(ctx, patientID).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicatePatient)

	_, err := d.svc.CreateWallet(ctx, ports.CreateWalletRequest{
		PatientID:   patientID,
		PatientName: "Jane Doe",
	})
	assertAppError(t, err, "WLT_002")
}

func TestWalletService_GetWallet_DecryptsContacts(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := domain.NewWallet(uuid.New(), "Jane Doe")
	phoneEnc := "enc_phone"
	emailEnc := "enc_email"
	wallet.PhoneEnc = &phoneEnc
	wallet.EmailEnc = &emailEnc

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)
	d.encSvc.EXPECT().Decrypt("enc_phone").Return("+84901234567", nil)
	d.encSvc.EXPECT().Decrypt("enc_email").Return("jane@example.com", nil)

	profile, err := d.svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, "+84901234567", *profile.Phone)
	require.NotNil(t, profile.Email)
	assert.Equal(t, "jane@example.com", *profile.Email)
}

func TestWalletService_GetWallet_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.GetWallet(ctx, id)
	assertAppError(t, err, "WLT_001")
}

func TestWalletService_SetActive(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := domain.NewWallet(uuid.New(), "Jane Doe")

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)
	d.walletRepo.EXPECT().SetActive(ctx, wallet.ID, false).Return(nil)

	err := d.svc.SetActive(ctx, wallet.ID, false)
	assert.NoError(t, err)
}

func TestWalletService_SetActive_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	err := d.svc.SetActive(ctx, id, false)
	assertAppError(t, err, "WLT_001")
}

func TestWalletService_UpdateProfile_PartialFields(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wallet := domain.NewWallet(uuid.New(), "Jane Doe")
	threshold := decimal.RequireFromString("50.00")
	newName := "Jane A. Doe"

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateProfile(ctx, wallet).Return(nil)

	err := d.svc.UpdateProfile(ctx, ports.UpdateProfileRequest{
		WalletID:            wallet.ID,
		PatientName:         &newName,
		LowBalanceThreshold: &threshold,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", wallet.PatientName)
	require.NotNil(t, wallet.LowBalanceThreshold)
	assert.True(t, wallet.LowBalanceThreshold.Equal(threshold))
	assert.Nil(t, wallet.PhoneEnc, "untouched fields stay nil")
}

func TestWalletService_ListWallets_ClampsPagination(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.walletRepo.EXPECT().
		List(ctx, ports.WalletListParams{Page: 1, PageSize: 20}).
		Return([]domain.Wallet{}, int64(0), nil)

	_, _, err := d.svc.ListWallets(ctx, ports.WalletListParams{Page: 0, PageSize: 9999})
	assert.NoError(t, err)
}
