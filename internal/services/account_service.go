package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "daybook/internal/errors"
	"daybook/internal/logger"
	"daybook/internal/models"
)

// accountDirectory handles the chart of accounts.
type accountDirectory struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	// structural serialises sub account creation against account deletion.
	structural sync.Mutex

	mu           sync.RWMutex
	mainAccounts []models.MainAccount
	subAccounts  []models.SubAccount
}

// NewAccountDirectory creates a new AccountDirectory. Its caches start empty
// until the first fetch.
func NewAccountDirectory(db *gorm.DB) AccountDirectory {
	return &accountDirectory{db: db, log: logger.Named("accounts")}
}

// FetchMainAccounts loads every main account, ordered by name, into the cache.
func (s *accountDirectory) FetchMainAccounts() ([]models.MainAccount, error) {
	var accounts []models.MainAccount
	if err := s.db.Order("name ASC").Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	s.mu.Lock()
	s.mainAccounts = accounts
	s.mu.Unlock()
	return cloneMainAccounts(accounts), nil
}

// FetchSubAccounts loads sub accounts ordered by name. An empty
// mainAccountID loads all of them and replaces the cache; otherwise only the
// children of that main account are returned and the cache is left alone.
func (s *accountDirectory) FetchSubAccounts(mainAccountID string) ([]models.SubAccount, error) {
	query := s.db.Order("name ASC").Order("created_at ASC")
	if mainAccountID != "" {
		query = query.Where("main_account_id = ?", mainAccountID)
	}

	var accounts []models.SubAccount
	if err := query.Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	if mainAccountID == "" {
		s.mu.Lock()
		s.subAccounts = accounts
		s.mu.Unlock()
	}
	return cloneSubAccounts(accounts), nil
}

// Refresh reloads both cached lists.
func (s *accountDirectory) Refresh() error {
	if _, err := s.FetchMainAccounts(); err != nil {
		return err
	}
	_, err := s.FetchSubAccounts("")
	return err
}

// GetMainAccountByID looks id up in the cached main accounts.
func (s *accountDirectory) GetMainAccountByID(id string) (*models.MainAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.mainAccounts {
		if s.mainAccounts[i].ID == id {
			account := s.mainAccounts[i]
			return &account, true
		}
	}
	return nil, false
}

// GetSubAccountByID looks id up in the cached sub accounts.
func (s *accountDirectory) GetSubAccountByID(id string) (*models.SubAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.subAccounts {
		if s.subAccounts[i].ID == id {
			account := s.subAccounts[i]
			return &account, true
		}
	}
	return nil, false
}

// CreateMainAccount creates a new top-level account.
func (s *accountDirectory) CreateMainAccount(name, description string) (*models.MainAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "main account name is required")
	}

	account := &models.MainAccount{Name: name, Description: description}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	s.refetchMain()
	return account, nil
}

// CreateSubAccount creates a child of mainAccountID. The parent must exist.
func (s *accountDirectory) CreateSubAccount(name, mainAccountID, description string) (*models.SubAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sub account name is required")
	}
	if mainAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "main account is required")
	}

	s.structural.Lock()
	defer s.structural.Unlock()

	var parents int64
	if err := s.db.Model(&models.MainAccount{}).Where("id = ?", mainAccountID).Count(&parents).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	if parents == 0 {
		return nil, apperrors.ErrUnknownMainAccount
	}

	account := &models.SubAccount{Name: name, MainAccountID: mainAccountID, Description: description}
	if err := s.db.Omit("MainAccount").Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperrors.Wrap(apperrors.ErrUnknownMainAccount, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	s.refetchSub()
	return account, nil
}

// UpdateMainAccount changes the name and/or description of a main account.
func (s *accountDirectory) UpdateMainAccount(id string, fields AccountUpdate) error {
	updates, err := accountUpdates(fields)
	if err != nil {
		return err
	}

	result := s.db.Model(&models.MainAccount{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrStore, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrMainAccountNotFound
	}

	s.refetchMain()
	return nil
}

// UpdateSubAccount changes the name and/or description of a sub account.
func (s *accountDirectory) UpdateSubAccount(id string, fields AccountUpdate) error {
	updates, err := accountUpdates(fields)
	if err != nil {
		return err
	}

	result := s.db.Model(&models.SubAccount{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrStore, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrSubAccountNotFound
	}

	s.refetchSub()
	return nil
}

// DeleteMainAccount removes a main account that has no sub accounts and no
// transactions. Sub accounts are counted first, then transactions.
func (s *accountDirectory) DeleteMainAccount(id string) error {
	s.structural.Lock()
	defer s.structural.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var subs int64
		if err := tx.Model(&models.SubAccount{}).Where("main_account_id = ?", id).Count(&subs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStore, err)
		}
		if subs > 0 {
			return apperrors.ErrMainAccountHasDependents
		}

		var txs int64
		if err := tx.Model(&models.Transaction{}).Where("main_account_id = ?", id).Count(&txs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStore, err)
		}
		if txs > 0 {
			return apperrors.ErrMainAccountHasDependents
		}

		result := tx.Delete(&models.MainAccount{}, "id = ?", id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
				return apperrors.Wrap(apperrors.ErrMainAccountHasDependents, result.Error)
			}
			return apperrors.Wrap(apperrors.ErrStore, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrMainAccountNotFound
		}
		return nil
	})
	if err != nil {
		return asStoreError(err)
	}

	s.refetchMain()
	return nil
}

// DeleteSubAccount removes a sub account that no transaction references.
func (s *accountDirectory) DeleteSubAccount(id string) error {
	s.structural.Lock()
	defer s.structural.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txs int64
		if err := tx.Model(&models.Transaction{}).Where("sub_account_id = ?", id).Count(&txs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStore, err)
		}
		if txs > 0 {
			return apperrors.ErrSubAccountHasDependents
		}

		result := tx.Delete(&models.SubAccount{}, "id = ?", id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
				return apperrors.Wrap(apperrors.ErrSubAccountHasDependents, result.Error)
			}
			return apperrors.Wrap(apperrors.ErrStore, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrSubAccountNotFound
		}
		return nil
	})
	if err != nil {
		return asStoreError(err)
	}

	s.refetchSub()
	return nil
}

// refetchMain and refetchSub keep the caches in line after a write. A
// failed re-fetch leaves the previous list in place.
func (s *accountDirectory) refetchMain() {
	if _, err := s.FetchMainAccounts(); err != nil {
		s.log.Warnw("main account re-fetch failed", "error", err)
	}
}

func (s *accountDirectory) refetchSub() {
	if _, err := s.FetchSubAccounts(""); err != nil {
		s.log.Warnw("sub account re-fetch failed", "error", err)
	}
}

func accountUpdates(fields AccountUpdate) (map[string]interface{}, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be blank")
		}
		updates["name"] = name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	return updates, nil
}

// asStoreError classifies anything that is not already an AppError as a
// store failure.
func asStoreError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrStore, err)
}

func cloneMainAccounts(in []models.MainAccount) []models.MainAccount {
	out := make([]models.MainAccount, len(in))
	copy(out, in)
	return out
}

func cloneSubAccounts(in []models.SubAccount) []models.SubAccount {
	out := make([]models.SubAccount, len(in))
	copy(out, in)
	return out
}
