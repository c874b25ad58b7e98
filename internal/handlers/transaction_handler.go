package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "daybook/internal/errors"
	"daybook/internal/ledger"
	"daybook/internal/models"
	"daybook/internal/services"
)

// TransactionHandler serves the caller's ledger session: filtered views,
// writes, and archive-backed delete and undo.
type TransactionHandler struct {
	sessions       services.LedgerSessions
	archiveService services.ArchiveServicer
	auditService   services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(sessions services.LedgerSessions, archiveService services.ArchiveServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{sessions: sessions, archiveService: archiveService, auditService: auditService}
}

// FilterRequest represents the filter set applied to the ledger view.
type FilterRequest struct {
	StartDate     *string `json:"start_date" binding:"omitempty,iso_date"`
	EndDate       *string `json:"end_date" binding:"omitempty,iso_date"`
	MainAccountID string  `json:"main_account_id" binding:"omitempty,uuid"`
	SubAccountID  string  `json:"sub_account_id" binding:"omitempty,uuid"`
	Search        string  `json:"search" binding:"max=100"`
	Summary       string  `json:"summary" binding:"omitempty,summary_period"`
}

// CreateTransactionRequest represents the request payload for recording a
// transaction. Either an account id or a new account name must be given for
// each level.
type CreateTransactionRequest struct {
	Date               *string                `json:"date" binding:"omitempty,iso_date"`
	MainAccountID      string                 `json:"main_account_id" binding:"omitempty,uuid"`
	SubAccountID       string                 `json:"sub_account_id" binding:"omitempty,uuid"`
	NewMainAccountName string                 `json:"new_main_account_name" binding:"max=100"`
	NewSubAccountName  string                 `json:"new_sub_account_name" binding:"max=100"`
	Description        string                 `json:"description" binding:"max=500"`
	Amount             decimal.Decimal        `json:"amount" swaggertype:"string" binding:"required,gt=0"`
	Type               models.TransactionType `json:"type" binding:"required,transaction_type"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. Omitted fields keep their value.
type UpdateTransactionRequest struct {
	Date          *string                 `json:"date" binding:"omitempty,iso_date"`
	MainAccountID *string                 `json:"main_account_id" binding:"omitempty,uuid"`
	SubAccountID  *string                 `json:"sub_account_id" binding:"omitempty,uuid"`
	Description   *string                 `json:"description" binding:"omitempty,max=500"`
	Amount        *decimal.Decimal        `json:"amount" swaggertype:"string" binding:"omitempty,gt=0"`
	Type          *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
}

// ListTransactions re-runs the caller's remembered filters and returns the view.
// @Summary     Get the ledger view
// @Description Transactions newest first with totals and running balance, under the caller's last filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.LedgerView "Ledger view"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := store.Refresh()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": view})
}

// ApplyFilters replaces the caller's filters and returns the filtered view.
// @Summary     Filter the ledger view
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body FilterRequest true "Filters; omitted fields are unconstrained"
// @Success     200 {object} services.LedgerView "Ledger view"
// @Failure     400 {object} ErrorResponse "Invalid filters"
// @Router      /transactions/filters [post]
func (h *TransactionHandler) ApplyFilters(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filters, err := req.filters()
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := store.ApplyFilters(filters)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": view})
}

// CreateTransaction records a credit or debit.
// @Summary     Record a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     422 {object} ErrorResponse "Unknown or mismatched account"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fields := services.NewTransaction{
		MainAccountID:      req.MainAccountID,
		SubAccountID:       req.SubAccountID,
		NewMainAccountName: req.NewMainAccountName,
		NewSubAccountName:  req.NewSubAccountName,
		Description:        req.Description,
		Amount:             req.Amount,
		Type:               req.Type,
	}
	if date != nil {
		fields.Date = *date
	}

	tx, err := store.CreateTransaction(fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(store.Actor(), "CREATE_TRANSACTION", "transaction", tx.ID, c.ClientIP(),
		map[string]interface{}{"type": tx.Type, "amount": tx.Amount.String(), "sub_account_id": tx.SubAccountID})

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// GetTransaction returns one transaction from the caller's view.
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Not in the current view"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, ok := store.Lookup(id)
	if !ok {
		if _, err := store.Refresh(); err != nil {
			respondWithError(c, err)
			return
		}
		if tx, ok = store.Lookup(id); !ok {
			respondWithError(c, apperrors.ErrTransactionNotFound)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// UpdateTransaction changes a transaction in place and returns the refreshed view.
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} services.LedgerView "Ledger view"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     422 {object} ErrorResponse "Unknown or mismatched account"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields, err := req.fields()
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := store.UpdateTransaction(id, fields); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(store.Actor(), "UPDATE_TRANSACTION", "transaction", id, c.ClientIP(), req.changes())

	c.JSON(http.StatusOK, gin.H{"ledger": store.View()})
}

// DeleteTransaction archives a transaction and removes it from the ledger.
// @Summary     Delete a transaction
// @Description The transaction is archived first and can be restored with undo
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction archived"
// @Failure     404 {object} ErrorResponse "Not in the current view"
// @Failure     500 {object} ErrorResponse "Store error or incomplete delete"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.archiveService.DeleteTransaction(store, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(store.Actor(), "DELETE_TRANSACTION", "transaction", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// UndoTransaction restores the most recently archived copy of a transaction.
// @Summary     Undo a delete
// @Description The restored transaction gets a new ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Original transaction ID"
// @Success     201 {object} models.Transaction "Transaction restored"
// @Failure     404 {object} ErrorResponse "No archived copy"
// @Failure     422 {object} ErrorResponse "Its accounts no longer exist"
// @Router      /transactions/{id}/undo [post]
func (h *TransactionHandler) UndoTransaction(c *gin.Context) {
	store, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.archiveService.UndoTransaction(store, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(store.Actor(), "UNDO_TRANSACTION", "transaction", tx.ID, c.ClientIP(),
		map[string]interface{}{"original_id": id})

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

func (h *TransactionHandler) session(c *gin.Context) (services.LedgerStore, error) {
	actor, err := getActor(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Session(actor)
}

func (r FilterRequest) filters() (services.TransactionFilters, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return services.TransactionFilters{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return services.TransactionFilters{}, err
	}
	return services.TransactionFilters{
		StartDate:     start,
		EndDate:       end,
		MainAccountID: r.MainAccountID,
		SubAccountID:  r.SubAccountID,
		Search:        r.Search,
		Summary:       ledger.Period(r.Summary),
	}, nil
}

func (r UpdateTransactionRequest) fields() (services.TransactionUpdate, error) {
	var date *time.Time
	if r.Date != nil {
		d, err := parseDate(r.Date)
		if err != nil {
			return services.TransactionUpdate{}, err
		}
		date = d
	}
	return services.TransactionUpdate{
		Date:          date,
		MainAccountID: r.MainAccountID,
		SubAccountID:  r.SubAccountID,
		Description:   r.Description,
		Amount:        r.Amount,
		Type:          r.Type,
	}, nil
}

func (r UpdateTransactionRequest) changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if r.Date != nil {
		changes["date"] = *r.Date
	}
	if r.MainAccountID != nil {
		changes["main_account_id"] = *r.MainAccountID
	}
	if r.SubAccountID != nil {
		changes["sub_account_id"] = *r.SubAccountID
	}
	if r.Description != nil {
		changes["description"] = *r.Description
	}
	if r.Amount != nil {
		changes["amount"] = r.Amount.String()
	}
	if r.Type != nil {
		changes["type"] = *r.Type
	}
	return changes
}
