// internal/handlers/dashboard.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// DashboardHandler aggregates funnel metrics for the back office.
type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type stageCount struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Funnel returns lead counts per stage, application counts per status and
// disbursement totals.
func (h *DashboardHandler) Funnel(c *gin.Context) {
	var stages []stageCount
	err := h.db.Model(&models.Lead{}).
		Select("stage, COUNT(*) as count").
		Group("stage").
		Scan(&stages).Error
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to aggregate leads")
		return
	}

	var statuses []statusCount
	err = h.db.Model(&models.Application{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statuses).Error
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to aggregate applications")
		return
	}

	var totals struct {
		DisbursedCount  int64   `json:"disbursed_count"`
		DisbursedAmount float64 `json:"disbursed_amount"`
	}
	err = h.db.Model(&models.Application{}).
		Select("COUNT(*) as disbursed_count, COALESCE(SUM(COALESCE(approved_amount, requested_amount)), 0) as disbursed_amount").
		Where("status = ?", models.ApplicationStatusDisbursed).
		Scan(&totals).Error
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to aggregate disbursements")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"leads_by_stage":         stages,
		"applications_by_status": statuses,
		"disbursed":              totals,
	})
}
