package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/services"
	"daybook/internal/uuid"
)

// AccountHandler handles the chart of accounts.
type AccountHandler struct {
	accounts     services.AccountDirectory
	auditService services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts services.AccountDirectory, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accounts: accounts, auditService: auditService}
}

// CreateMainAccountRequest represents the request payload for creating a main account.
type CreateMainAccountRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// CreateSubAccountRequest represents the request payload for creating a sub account.
type CreateSubAccountRequest struct {
	Name          string `json:"name" binding:"required,notblank,max=100"`
	MainAccountID string `json:"main_account_id" binding:"required,uuid"`
	Description   string `json:"description" binding:"max=500"`
}

// UpdateAccountRequest represents the request payload for updating either
// kind of account. Only name and description are mutable.
type UpdateAccountRequest struct {
	Name        *string `json:"name" binding:"omitempty,notblank,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func (r UpdateAccountRequest) fields() services.AccountUpdate {
	return services.AccountUpdate{Name: r.Name, Description: r.Description}
}

func (r UpdateAccountRequest) changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if r.Name != nil {
		changes["name"] = *r.Name
	}
	if r.Description != nil {
		changes["description"] = *r.Description
	}
	return changes
}

// ListMainAccounts returns every main account ordered by name.
// @Summary     List main accounts
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]models.MainAccount "Main accounts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /main-accounts [get]
func (h *AccountHandler) ListMainAccounts(c *gin.Context) {
	accounts, err := h.accounts.FetchMainAccounts()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"main_accounts": accounts})
}

// CreateMainAccount handles the creation of a main account.
// @Summary     Create a main account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateMainAccountRequest true "Main account details"
// @Success     201 {object} models.MainAccount "Main account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /main-accounts [post]
func (h *AccountHandler) CreateMainAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMainAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accounts.CreateMainAccount(req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_MAIN_ACCOUNT", "main_account", account.ID, c.ClientIP(),
		map[string]interface{}{"name": account.Name})

	c.JSON(http.StatusCreated, gin.H{"main_account": account})
}

// GetMainAccount returns a single main account.
// @Summary     Get a main account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Main account ID"
// @Success     200 {object} models.MainAccount "Main account"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /main-accounts/{id} [get]
func (h *AccountHandler) GetMainAccount(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.lookupMain(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"main_account": account})
}

// UpdateMainAccount renames or re-describes a main account.
// @Summary     Update a main account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Main account ID"
// @Param       request body UpdateAccountRequest true "Fields to change"
// @Success     200 {object} models.MainAccount "Main account updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /main-accounts/{id} [put]
func (h *AccountHandler) UpdateMainAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.accounts.UpdateMainAccount(id, req.fields()); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_MAIN_ACCOUNT", "main_account", id, c.ClientIP(), req.changes())

	account, err := h.lookupMain(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"main_account": account})
}

// DeleteMainAccount removes a main account without dependents.
// @Summary     Delete a main account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Main account ID"
// @Success     200 {object} MessageResponse "Main account deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     409 {object} ErrorResponse "Has sub accounts or transactions"
// @Router      /main-accounts/{id} [delete]
func (h *AccountHandler) DeleteMainAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accounts.DeleteMainAccount(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "DELETE_MAIN_ACCOUNT", "main_account", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Main account deleted successfully"})
}

// ListSubAccounts returns sub accounts, optionally only those under one main account.
// @Summary     List sub accounts
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       main_account_id query string false "Parent main account ID"
// @Success     200 {object} map[string][]models.SubAccount "Sub accounts"
// @Failure     400 {object} ErrorResponse "Invalid main account ID"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /sub-accounts [get]
func (h *AccountHandler) ListSubAccounts(c *gin.Context) {
	mainAccountID := c.Query("main_account_id")
	if mainAccountID != "" && !uuid.IsValid(mainAccountID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid main_account_id"))
		return
	}

	accounts, err := h.accounts.FetchSubAccounts(mainAccountID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sub_accounts": accounts})
}

// CreateSubAccount handles the creation of a sub account.
// @Summary     Create a sub account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSubAccountRequest true "Sub account details"
// @Success     201 {object} models.SubAccount "Sub account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     422 {object} ErrorResponse "Unknown main account"
// @Router      /sub-accounts [post]
func (h *AccountHandler) CreateSubAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSubAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accounts.CreateSubAccount(req.Name, req.MainAccountID, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_SUB_ACCOUNT", "sub_account", account.ID, c.ClientIP(),
		map[string]interface{}{"name": account.Name, "main_account_id": account.MainAccountID})

	c.JSON(http.StatusCreated, gin.H{"sub_account": account})
}

// GetSubAccount returns a single sub account.
// @Summary     Get a sub account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Sub account ID"
// @Success     200 {object} models.SubAccount "Sub account"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /sub-accounts/{id} [get]
func (h *AccountHandler) GetSubAccount(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.lookupSub(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sub_account": account})
}

// UpdateSubAccount renames or re-describes a sub account.
// @Summary     Update a sub account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Sub account ID"
// @Param       request body UpdateAccountRequest true "Fields to change"
// @Success     200 {object} models.SubAccount "Sub account updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /sub-accounts/{id} [put]
func (h *AccountHandler) UpdateSubAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.accounts.UpdateSubAccount(id, req.fields()); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_SUB_ACCOUNT", "sub_account", id, c.ClientIP(), req.changes())

	account, err := h.lookupSub(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sub_account": account})
}

// DeleteSubAccount removes a sub account no transaction references.
// @Summary     Delete a sub account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Sub account ID"
// @Success     200 {object} MessageResponse "Sub account deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     409 {object} ErrorResponse "Used by transactions"
// @Router      /sub-accounts/{id} [delete]
func (h *AccountHandler) DeleteSubAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accounts.DeleteSubAccount(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "DELETE_SUB_ACCOUNT", "sub_account", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Sub account deleted successfully"})
}

// lookupMain reads the directory cache, refreshing it once on a miss so
// accounts created by other processes are found.
func (h *AccountHandler) lookupMain(id string) (*models.MainAccount, error) {
	if account, ok := h.accounts.GetMainAccountByID(id); ok {
		return account, nil
	}
	if err := h.accounts.Refresh(); err != nil {
		return nil, err
	}
	if account, ok := h.accounts.GetMainAccountByID(id); ok {
		return account, nil
	}
	return nil, apperrors.ErrMainAccountNotFound
}

func (h *AccountHandler) lookupSub(id string) (*models.SubAccount, error) {
	if account, ok := h.accounts.GetSubAccountByID(id); ok {
		return account, nil
	}
	if err := h.accounts.Refresh(); err != nil {
		return nil, err
	}
	if account, ok := h.accounts.GetSubAccountByID(id); ok {
		return account, nil
	}
	return nil, apperrors.ErrSubAccountNotFound
}
