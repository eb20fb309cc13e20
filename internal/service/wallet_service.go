package service

import (
	"context"
	"errors"
	"fmt"

	"clinic-wallet-service/internal/core/domain"
	"clinic-wallet-service/internal/core/ports"
	"clinic-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService. It owns wallet lifecycle
// and profile; balance movements belong to the ledger service.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	encSvc     ports.EncryptionService
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		encSvc:     encSvc,
		log:        log,
	}
}

// CreateWallet opens a wallet for a patient. One wallet per patient; a
// second create for the same patient fails.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	existing, err := s.walletRepo.GetByPatientID(ctx, req.PatientID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("check patient wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	wallet := domain.NewWallet(req.PatientID, req.PatientName)
	wallet.LowBalanceThreshold = req.LowBalanceThreshold
	wallet.AutoPay = req.AutoPay

	if err := s.encryptContacts(wallet, req.Phone, req.Email); err != nil {
		return nil, err
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		// The unique index closes the check-then-create race
		if errors.Is(err, ports.ErrDuplicatePatient) {
			return nil, apperror.ErrWalletExists()
		}
		return nil, apperror.ErrStorage(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("patient_id", wallet.PatientID.String()).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns a wallet with its contact details decrypted.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*ports.WalletProfile, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	profile := &ports.WalletProfile{Wallet: wallet}
	if wallet.PhoneEnc != nil {
		phone, err := s.encSvc.Decrypt(*wallet.PhoneEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt phone: %w", err))
		}
		profile.Phone = &phone
	}
	if wallet.EmailEnc != nil {
		email, err := s.encSvc.Decrypt(*wallet.EmailEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt email: %w", err))
		}
		profile.Email = &email
	}
	return profile, nil
}

// ListWallets returns wallets with pagination.
func (s *WalletServiceImpl) ListWallets(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	wallets, total, err := s.walletRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStorage(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, total, nil
}

// SetActive activates or deactivates a wallet. A deactivated wallet refuses
// all ledger operations but keeps its balance and history.
func (s *WalletServiceImpl) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}

	if err := s.walletRepo.SetActive(ctx, id, active); err != nil {
		return apperror.ErrStorage(fmt.Errorf("set wallet active: %w", err))
	}

	s.log.Info().
		Str("wallet_id", id.String()).
		Bool("active", active).
		Msg("wallet activity changed")
	return nil
}

// UpdateProfile changes name, contacts and alert settings on a wallet.
// Nil fields are left untouched.
func (s *WalletServiceImpl) UpdateProfile(ctx context.Context, req ports.UpdateProfileRequest) error {
	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}

	if req.PatientName != nil {
		wallet.PatientName = *req.PatientName
	}
	if req.LowBalanceThreshold != nil {
		wallet.LowBalanceThreshold = req.LowBalanceThreshold
	}
	if req.AutoPay != nil {
		wallet.AutoPay = *req.AutoPay
	}
	if err := s.encryptContacts(wallet, req.Phone, req.Email); err != nil {
		return err
	}

	if err := s.walletRepo.UpdateProfile(ctx, wallet); err != nil {
		return apperror.ErrStorage(fmt.Errorf("update wallet profile: %w", err))
	}
	return nil
}

// encryptContacts encrypts the provided contact fields onto the wallet,
// skipping nil ones.
func (s *WalletServiceImpl) encryptContacts(wallet *domain.Wallet, phone, email *string) error {
	if phone != nil {
		enc, err := s.encSvc.Encrypt(*phone)
		if err != nil {
			return apperror.ErrEncryptionFailure(fmt.Errorf("encrypt phone: %w", err))
		}
		wallet.PhoneEnc = &enc
	}
	if email != nil {
		enc, err := s.encSvc.Encrypt(*email)
		if err != nil {
			return apperror.ErrEncryptionFailure(fmt.Errorf("encrypt email: %w", err))
		}
		wallet.EmailEnc = &enc
	}
	return nil
}
