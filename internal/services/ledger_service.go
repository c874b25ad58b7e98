package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "daybook/internal/errors"
	"daybook/internal/ledger"
	"daybook/internal/logger"
	"daybook/internal/models"
)

const amountScale = 2

var maxAmount = decimal.New(1, 12)

// ledgerStore is a single caller's session over the transactions table.
type ledgerStore struct {
	db       *gorm.DB
	accounts AccountDirectory
	actor    string
	log      *zap.SugaredLogger
	now      func() time.Time

	mu         sync.Mutex
	filters    TransactionFilters
	view       *LedgerView
	generation uint64 // last fetch started
	applied    uint64 // fetch that produced view
	closed     bool
}

// NewLedgerStore creates a LedgerStore recording transactions as actor. The
// view stays empty until the first fetch.
func NewLedgerStore(db *gorm.DB, accounts AccountDirectory, actor string) LedgerStore {
	return &ledgerStore{
		db:       db,
		accounts: accounts,
		actor:    actor,
		log:      logger.Named("ledger").With("actor", actor),
		now:      time.Now,
	}
}

func (s *ledgerStore) Actor() string { return s.actor }

// FetchTransactions queries the ledger, newest first, and aggregates the result.
func (s *ledgerStore) FetchTransactions(filters *TransactionFilters) (*LedgerView, error) {
	var f TransactionFilters
	if filters != nil {
		f = normalizeFilters(*filters)
	}

	s.mu.Lock()
	if filters != nil {
		s.filters = f
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	txs, err := s.query(f)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	view := buildView(txs, f, s.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		s.log.Debugw("discarding fetch for closed session", "generation", gen)
	case gen < s.applied:
		s.log.Debugw("discarding stale fetch", "generation", gen, "applied", s.applied)
	default:
		s.applied = gen
		s.view = view
	}
	return view, nil
}

// ApplyFilters remembers filters and fetches under them.
func (s *ledgerStore) ApplyFilters(filters TransactionFilters) (*LedgerView, error) {
	return s.FetchTransactions(&filters)
}

// Refresh fetches again under the remembered filters.
func (s *ledgerStore) Refresh() (*LedgerView, error) {
	f := s.Filters()
	return s.FetchTransactions(&f)
}

func (s *ledgerStore) query(f TransactionFilters) ([]models.Transaction, error) {
	q := s.db.Model(&models.Transaction{}).Preload("MainAccount").Preload("SubAccount")
	if f.StartDate != nil {
		q = q.Where("date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("date <= ?", *f.EndDate)
	}
	if f.MainAccountID != "" {
		q = q.Where("main_account_id = ?", f.MainAccountID)
	}
	if f.SubAccountID != "" {
		q = q.Where("sub_account_id = ?", f.SubAccountID)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		mains := s.db.Model(&models.MainAccount{}).Select("id").Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
		subs := s.db.Model(&models.SubAccount{}).Select("id").Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
		q = q.Where(`(LOWER(description) LIKE ? ESCAPE '\' OR main_account_id IN (?) OR sub_account_id IN (?))`, pattern, mains, subs)
	}

	var txs []models.Transaction
	if err := q.Order("date DESC").Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func buildView(txs []models.Transaction, f TransactionFilters, fetchedAt time.Time) *LedgerView {
	if txs == nil {
		txs = []models.Transaction{}
	}
	return &LedgerView{
		Transactions: txs,
		Summary:      ledger.Aggregate(txs),
		Periods:      ledger.SummarizeByPeriod(txs, f.Summary),
		Filters:      f,
		FetchedAt:    fetchedAt,
	}
}

// CreateTransaction validates and records a new transaction, creating any
// inline accounts first, then re-fetches the view.
func (s *ledgerStore) CreateTransaction(fields NewTransaction) (*models.Transaction, error) {
	if strings.TrimSpace(s.actor) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "an actor is required to record transactions")
	}
	if err := validateEntry(fields.Type, fields.Amount); err != nil {
		return nil, err
	}

	mainID := fields.MainAccountID
	if mainID == "" && strings.TrimSpace(fields.NewMainAccountName) != "" {
		account, err := s.accounts.CreateMainAccount(fields.NewMainAccountName, "")
		if err != nil {
			return nil, err
		}
		mainID = account.ID
	}
	if mainID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "main account is required")
	}

	subID := fields.SubAccountID
	if subID == "" && strings.TrimSpace(fields.NewSubAccountName) != "" {
		account, err := s.accounts.CreateSubAccount(fields.NewSubAccountName, mainID, "")
		if err != nil {
			return nil, err
		}
		subID = account.ID
	}
	if subID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sub account is required")
	}

	date := fields.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	tx := &models.Transaction{
		Date:          calendarDate(date),
		MainAccountID: mainID,
		SubAccountID:  subID,
		Description:   fields.Description,
		Amount:        fields.Amount,
		Type:          fields.Type,
		CreatedBy:     s.actor,
	}
	if err := s.insert(tx); err != nil {
		return nil, err
	}

	s.refetchAfter("create")
	return tx, nil
}

// UpdateTransaction merges fields into the stored transaction, validates the
// result and stamps a new update time.
func (s *ledgerStore) UpdateTransaction(id string, fields TransactionUpdate) error {
	var current models.Transaction
	if err := s.db.Where("id = ?", id).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTransactionNotFound
		}
		return apperrors.Wrap(apperrors.ErrStore, err)
	}

	if fields.Date != nil {
		current.Date = calendarDate(*fields.Date)
	}
	if fields.MainAccountID != nil {
		current.MainAccountID = *fields.MainAccountID
	}
	if fields.SubAccountID != nil {
		current.SubAccountID = *fields.SubAccountID
	}
	if fields.Description != nil {
		current.Description = *fields.Description
	}
	if fields.Amount != nil {
		current.Amount = *fields.Amount
	}
	if fields.Type != nil {
		current.Type = *fields.Type
	}

	if err := validateEntry(current.Type, current.Amount); err != nil {
		return err
	}
	if err := checkAccounts(s.db, current.MainAccountID, current.SubAccountID); err != nil {
		return err
	}

	result := s.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"date":            current.Date,
		"main_account_id": current.MainAccountID,
		"sub_account_id":  current.SubAccountID,
		"description":     current.Description,
		"amount":          current.Amount,
		"type":            current.Type,
		"updated_at":      s.now().UTC(),
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
			return apperrors.Wrap(apperrors.ErrUnknownSubAccount, result.Error)
		}
		return apperrors.Wrap(apperrors.ErrStore, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	s.refetchAfter("update")
	return nil
}

// RestoreTransaction inserts the snapshot as a new live transaction. The
// original creator and creation time are kept; identity is fresh.
func (s *ledgerStore) RestoreTransaction(snapshot models.TransactionSnapshot) (*models.Transaction, error) {
	tx := snapshot.Transaction()
	tx.Date = calendarDate(tx.Date)
	if err := validateEntry(tx.Type, tx.Amount); err != nil {
		return nil, err
	}
	if err := s.insert(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RemoveTransaction deletes the live row. It reports false when no row matched.
func (s *ledgerStore) RemoveTransaction(id string) (bool, error) {
	result := s.db.Delete(&models.Transaction{}, "id = ?", id)
	if result.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrStore, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Lookup finds id in the last materialized view.
func (s *ledgerStore) Lookup(id string) (*models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, false
	}
	for i := range s.view.Transactions {
		if s.view.Transactions[i].ID == id {
			tx := s.view.Transactions[i]
			return &tx, true
		}
	}
	return nil, false
}

// View returns the last materialized view, or nil before the first fetch.
func (s *ledgerStore) View() *LedgerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *ledgerStore) Filters() TransactionFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Close marks the session dead. Fetches still in flight return their
// result to the caller but no longer update the view.
func (s *ledgerStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *ledgerStore) insert(tx *models.Transaction) error {
	if err := checkAccounts(s.db, tx.MainAccountID, tx.SubAccountID); err != nil {
		return err
	}
	if err := s.db.Omit(clause.Associations).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return apperrors.Wrap(apperrors.ErrUnknownSubAccount, err)
		}
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	return nil
}

// refetchAfter re-runs the remembered view after a write. The write already
// happened, so a failure here is only logged.
func (s *ledgerStore) refetchAfter(op string) {
	if _, err := s.Refresh(); err != nil {
		s.log.Warnw("ledger re-fetch failed", "after", op, "error", err)
	}
}

func validateEntry(txType models.TransactionType, amount decimal.Decimal) error {
	if !txType.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	// amounts are stored as NUMERIC(14, 2)
	if !amount.Equal(amount.Truncate(amountScale)) {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "Amount must have at most two decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "Amount must be less than 1000000000000")
	}
	return nil
}

// checkAccounts verifies that both accounts exist and that the sub account
// belongs to the main account.
func checkAccounts(db *gorm.DB, mainAccountID, subAccountID string) error {
	var mains int64
	if err := db.Model(&models.MainAccount{}).Where("id = ?", mainAccountID).Count(&mains).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	if mains == 0 {
		return apperrors.ErrUnknownMainAccount
	}

	var sub models.SubAccount
	if err := db.Where("id = ?", subAccountID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnknownSubAccount
		}
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	if sub.MainAccountID != mainAccountID {
		return apperrors.ErrSubAccountMismatch
	}
	return nil
}

func normalizeFilters(f TransactionFilters) TransactionFilters {
	if f.StartDate != nil {
		d := calendarDate(*f.StartDate)
		f.StartDate = &d
	}
	if f.EndDate != nil {
		d := calendarDate(*f.EndDate)
		f.EndDate = &d
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Summary == "" {
		f.Summary = ledger.PeriodNone
	}
	return f
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// calendarDate drops the time of day, keeping the date as seen in t's location.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SessionRegistry keeps one LedgerStore per actor.
type SessionRegistry struct {
	db       *gorm.DB
	accounts AccountDirectory

	mu       sync.Mutex
	sessions map[string]LedgerStore
}

// NewSessionRegistry creates the per-actor session registry.
func NewSessionRegistry(db *gorm.DB, accounts AccountDirectory) *SessionRegistry {
	return &SessionRegistry{db: db, accounts: accounts, sessions: make(map[string]LedgerStore)}
}

// Session returns the actor's LedgerStore, creating it with an initial
// unfiltered fetch on first use.
func (r *SessionRegistry) Session(actor string) (LedgerStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.sessions[actor]; ok {
		return store, nil
	}

	store := NewLedgerStore(r.db, r.accounts, actor)
	if _, err := store.FetchTransactions(nil); err != nil {
		store.Close()
		return nil, err
	}
	r.sessions[actor] = store
	return store, nil
}

// End closes and forgets the actor's session.
func (r *SessionRegistry) End(actor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.sessions[actor]; ok {
		store.Close()
		delete(r.sessions, actor)
	}
}

// CloseAll ends every session.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for actor, store := range r.sessions {
		store.Close()
		delete(r.sessions, actor)
	}
}
