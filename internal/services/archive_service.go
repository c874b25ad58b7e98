package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "daybook/internal/errors"
	"daybook/internal/logger"
	"daybook/internal/models"
	"daybook/internal/pagination"
)

// archiveService implements delete-to-archive and undo.
//
// Neither workflow runs in a single store transaction. Each step is a
// separate write and a failure part way leaves the state described on the
// method, logged at warn level.
type archiveService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

// NewArchiveService creates a new ArchiveServicer.
func NewArchiveService(db *gorm.DB) ArchiveServicer {
	return &archiveService{db: db, log: logger.Named("archive"), now: time.Now}
}

// DeleteTransaction archives the transaction found in store's current view,
// then removes the live row.
//
// If the archive insert fails nothing has changed. If the live delete fails
// after archiving, the archive entry stays next to the still-live row and
// ErrDeleteIncomplete is returned.
func (s *archiveService) DeleteTransaction(store LedgerStore, id string) error {
	live, ok := store.Lookup(id)
	if !ok {
		return apperrors.ErrTransactionNotFound
	}

	entry := &models.ArchivedTransaction{
		OriginalID:      live.ID,
		TransactionData: live.Snapshot(),
		DeletedAt:       s.now().UTC(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}

	removed, err := store.RemoveTransaction(id)
	if err != nil {
		s.log.Warnw("transaction archived but not removed",
			"archive_id", entry.ID,
			"original_id", id,
			"error", err,
		)
		return apperrors.Wrap(apperrors.ErrDeleteIncomplete, err)
	}
	if !removed {
		s.log.Infow("transaction already gone from the ledger", "archive_id", entry.ID, "original_id", id)
	}

	if _, err := store.Refresh(); err != nil {
		s.log.Warnw("ledger re-fetch failed", "after", "delete", "error", err)
	}
	return nil
}

// UndoTransaction restores the most recently archived copy of originalID as
// a new transaction and drops that archive entry.
//
// A failed restore leaves the archive entry in place. A failed cleanup is
// logged and the undo still succeeds, leaving a stale archive entry behind.
func (s *archiveService) UndoTransaction(store LedgerStore, originalID string) (*models.Transaction, error) {
	var entry models.ArchivedTransaction
	err := s.db.Where("original_id = ?", originalID).Order("deleted_at DESC").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrArchivedTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	restored, err := store.RestoreTransaction(entry.TransactionData)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(&models.ArchivedTransaction{}, "id = ?", entry.ID).Error; err != nil {
		s.log.Warnw("transaction restored but archive entry not removed",
			"archive_id", entry.ID,
			"original_id", originalID,
			"restored_id", restored.ID,
			"error", err,
		)
	}

	if _, err := store.Refresh(); err != nil {
		s.log.Warnw("ledger re-fetch failed", "after", "undo", "error", err)
	}
	return restored, nil
}

// ListArchived pages through the archive, most recent deletion first.
func (s *archiveService) ListArchived(page pagination.PageRequest) (*pagination.PageResponse[models.ArchivedTransaction], error) {
	result, err := pagination.Find[models.ArchivedTransaction](s.db.Model(&models.ArchivedTransaction{}), page, "deleted_at DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return result, nil
}
