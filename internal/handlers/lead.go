// internal/handlers/lead.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// LeadHandler exposes the origination funnel to the back office.
type LeadHandler struct {
	db *gorm.DB
}

func NewLeadHandler(db *gorm.DB) *LeadHandler {
	return &LeadHandler{db: db}
}

// List returns leads, newest first, filterable by stage and searchable by
// name or phone.
func (h *LeadHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	query := h.db.Model(&models.Lead{})
	if params.Stage != "" {
		query = query.Where("stage = ?", params.Stage)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name ILIKE ? OR phone LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to count leads")
		return
	}

	var leads []models.Lead
	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "name", "stage"})
	if err := utils.ApplyPagination(query, params).Find(&leads).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to list leads")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(leads, total, params))
}

// Get returns one lead with its applications, documents and latest
// conversation.
func (h *LeadHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid lead ID", nil)
		return
	}

	var lead models.Lead
	err = h.db.
		Preload("Applications", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Preload("CreditAnalysis").Preload("Contract")
		}).
		Preload("Documents").
		First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFoundResponse(c, "Lead")
		return
	}
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load lead")
		return
	}

	utils.SuccessResponse(c, lead)
}

// Conversation returns the lead's message history, oldest first.
func (h *LeadHandler) Conversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid lead ID", nil)
		return
	}

	var conversation models.Conversation
	err = h.db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("lead_id = ? AND active = ?", id, true).
		Order("created_at DESC").
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFoundResponse(c, "Conversation")
		return
	}
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load conversation")
		return
	}

	utils.SuccessResponse(c, conversation)
}
