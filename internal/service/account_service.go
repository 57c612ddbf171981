package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/apperrors"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
)

// tokenExpiryWarningWindow is how far ahead of a broker token's expiry the
// config read starts carrying a warning.
const tokenExpiryWarningWindow = 30 * 24 * time.Hour

// CreateAccountRequest describes a new account.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Broker   string `json:"broker"`
	Currency string `json:"currency"`
}

// AccountService manages brokerage accounts and their broker access
// configuration. Broker tokens are fernet-encrypted at rest; with no key
// configured, accounts work normally but token storage is rejected.
type AccountService struct {
	accountRepo *repository.AccountRepository
	configRepo  *repository.BrokerConfigRepository
	keys        []*fernet.Key
	log         zerolog.Logger
}

// NewAccountService creates a new AccountService. fernetKey is the
// base64-encoded encryption key for broker tokens; empty disables token
// storage.
func NewAccountService(
	accountRepo *repository.AccountRepository,
	configRepo *repository.BrokerConfigRepository,
	fernetKey string,
	log zerolog.Logger,
) (*AccountService, error) {
	var keys []*fernet.Key
	if fernetKey != "" {
		decoded, err := fernet.DecodeKeys(fernetKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode fernet key: %w", err)
		}
		keys = decoded
	}

	return &AccountService{
		accountRepo: accountRepo,
		configRepo:  configRepo,
		keys:        keys,
		log:         log.With().Str("service", "account").Logger(),
	}, nil
}

// Create stores a new account. Currency defaults to USD.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (model.Account, error) {
	account := model.Account{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Broker:    req.Broker,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}

	if err := s.accountRepo.Create(account); err != nil {
		return model.Account{}, err
	}

	s.log.Info().Str("accountId", account.ID).Str("name", account.Name).Msg("account created")
	return account, nil
}

// List retrieves accounts, excluding archived ones unless asked.
func (s *AccountService) List(ctx context.Context, includeArchived bool) ([]model.Account, error) {
	return s.accountRepo.GetAll(model.AccountFilter{IncludeArchived: includeArchived})
}

// Get retrieves one account.
func (s *AccountService) Get(ctx context.Context, accountID string) (model.Account, error) {
	return s.accountRepo.GetByID(accountID)
}

// Archive hides an account from default listings. Its data is retained.
func (s *AccountService) Archive(ctx context.Context, accountID string) error {
	if err := s.accountRepo.SetArchived(accountID, true); err != nil {
		return err
	}
	s.log.Info().Str("accountId", accountID).Msg("account archived")
	return nil
}

// GetBrokerConfig retrieves the account's broker configuration with the
// token decrypted. An account without one returns Configured == false rather
// than an error. A token expiring within the warning window carries a
// warning.
func (s *AccountService) GetBrokerConfig(ctx context.Context, accountID string) (model.BrokerConfig, error) {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return model.BrokerConfig{}, err
	}

	row, err := s.configRepo.GetByAccountID(accountID)
	if err == apperrors.ErrBrokerConfigNotFound {
		return model.BrokerConfig{Configured: false, AccountID: accountID}, nil
	}
	if err != nil {
		return model.BrokerConfig{}, err
	}

	config := model.BrokerConfig{
		Configured:     true,
		AccountID:      row.AccountID,
		Enabled:        row.Enabled,
		TokenExpiresAt: row.TokenExpiresAt,
		UpdatedAt:      row.UpdatedAt,
	}

	if row.EncryptedToken != "" {
		if len(s.keys) == 0 {
			return model.BrokerConfig{}, apperrors.ErrTokenEncryptionDisabled
		}
		// TTL -1: tokens at rest never age out of decryption. Expiry is
		// tracked separately through TokenExpiresAt.
		plaintext := fernet.VerifyAndDecrypt([]byte(row.EncryptedToken), -1, s.keys)
		if plaintext == nil {
			return model.BrokerConfig{}, fmt.Errorf("failed to decrypt broker token: %w", apperrors.ErrDataInconsistency)
		}
		config.Token = string(plaintext)
	}

	if row.TokenExpiresAt != nil {
		until := time.Until(*row.TokenExpiresAt)
		switch {
		case until <= 0:
			config.TokenWarning = "broker token has expired"
		case until <= tokenExpiryWarningWindow:
			config.TokenWarning = fmt.Sprintf("broker token expires in %d days", int(until.Hours()/24))
		}
	}

	return config, nil
}

// UpdateBrokerConfig stores the account's broker configuration, encrypting
// the token at rest. Supplying a token without an encryption key configured
// is an error.
func (s *AccountService) UpdateBrokerConfig(ctx context.Context, accountID string, config model.BrokerConfig) error {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return err
	}

	row := repository.BrokerConfigRow{
		AccountID:      accountID,
		Enabled:        config.Enabled,
		TokenExpiresAt: config.TokenExpiresAt,
		UpdatedAt:      time.Now().UTC(),
	}

	if config.Token != "" {
		if len(s.keys) == 0 {
			return apperrors.ErrTokenEncryptionDisabled
		}
		encrypted, err := fernet.EncryptAndSign([]byte(config.Token), s.keys[0])
		if err != nil {
			return fmt.Errorf("failed to encrypt broker token: %w", err)
		}
		row.EncryptedToken = string(encrypted)
	}

	if existing, err := s.configRepo.GetByAccountID(accountID); err == nil {
		row.ID = existing.ID
		// An update without a new token keeps the stored one.
		if config.Token == "" {
			row.EncryptedToken = existing.EncryptedToken
		}
	}

	if err := s.configRepo.Upsert(row); err != nil {
		return err
	}

	s.log.Info().Str("accountId", accountID).Bool("enabled", config.Enabled).Msg("broker config updated")
	return nil
}
