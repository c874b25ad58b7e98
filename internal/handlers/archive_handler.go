package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "daybook/internal/errors"
	"daybook/internal/pagination"
	"daybook/internal/services"
)

// ArchiveHandler lists archived transactions.
type ArchiveHandler struct {
	archiveService services.ArchiveServicer
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(archiveService services.ArchiveServicer) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService}
}

// ListArchived returns archive entries, most recently deleted first.
// @Summary     List archived transactions
// @Tags        archive
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Items per page (max 100)"
// @Success     200 {object} pagination.PageResponse[models.ArchivedTransaction] "Paginated archive"
// @Failure     400 {object} ErrorResponse "Invalid paging"
// @Failure     500 {object} ErrorResponse "Store error"
// @Router      /archive [get]
func (h *ArchiveHandler) ListArchived(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.archiveService.ListArchived(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
