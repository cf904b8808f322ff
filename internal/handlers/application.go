// internal/handlers/application.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/utils"
)

type ApplicationHandler struct {
	db *gorm.DB
}

func NewApplicationHandler(db *gorm.DB) *ApplicationHandler {
	return &ApplicationHandler{db: db}
}

// List returns applications, newest first, filterable by status.
func (h *ApplicationHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	query := h.db.Model(&models.Application{}).Preload("Lead")
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to count applications")
		return
	}

	var applications []models.Application
	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "status", "requested_amount"})
	if err := utils.ApplyPagination(query, params).Find(&applications).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to list applications")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(applications, total, params))
}

// Get returns one application with its analysis and contract.
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	var application models.Application
	err = h.db.Preload("Lead").Preload("CreditAnalysis").Preload("Contract").
		First(&application, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFoundResponse(c, "Application")
		return
	}
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load application")
		return
	}

	utils.SuccessResponse(c, application)
}
