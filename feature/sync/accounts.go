package sync

import (
	"context"
	"errors"
	"fmt"

	"membersync/feature/sync/models"

	"gorm.io/gorm"
)

// AccountStore persists locally registered accounts and their credentials.
// It is the credential store consumed by the engine: an account whose token
// was cleared is skipped on the next run instead of failing it.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore creates an account store over the local database.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// ListAll returns every registered account.
func (s *AccountStore) ListAll(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Get returns the account registered under dni, or nil when absent.
func (s *AccountStore) Get(ctx context.Context, dni string) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).First(&acct, "dni = ?", dni).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", dni, err)
	}
	return &acct, nil
}

// Save upserts the account row, metadata included.
func (s *AccountStore) Save(ctx context.Context, acct *models.Account) error {
	if acct.Kind == "" {
		acct.Kind = models.AccountKindPrimary
	}
	if err := s.db.WithContext(ctx).Save(acct).Error; err != nil {
		return fmt.Errorf("failed to save account %s: %w", acct.DNI, err)
	}
	return nil
}

// Delete removes the account registered under dni.
func (s *AccountStore) Delete(ctx context.Context, dni string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Account{DNI: dni}).Error; err != nil {
		return fmt.Errorf("failed to delete account %s: %w", dni, err)
	}
	return nil
}

// ClearCredential empties the stored token so the account is skipped until
// the user logs in again.
func (s *AccountStore) ClearCredential(ctx context.Context, dni string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("dni = ?", dni).
		Update("auth_token", "").Error
	if err != nil {
		return fmt.Errorf("failed to clear credential for %s: %w", dni, err)
	}
	return nil
}

// UserData returns the stored metadata value for key, or "" when unset.
func (s *AccountStore) UserData(ctx context.Context, dni, key string) (string, error) {
	acct, err := s.Get(ctx, dni)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", nil
	}
	return acct.Meta(key), nil
}

// SetUserData stores a metadata value on the account.
func (s *AccountStore) SetUserData(ctx context.Context, dni, key, value string) error {
	acct, err := s.Get(ctx, dni)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("account %s not registered", dni)
	}
	acct.SetMeta(key, value)
	return s.Save(ctx, acct)
}
