// internal/handlers/document.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/services"
	"github.com/zenwallet/loan-origination/internal/utils"
)

type DocumentHandler struct {
	documents *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type verifyDocumentRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// Verify marks a document as verified or rejected after manual review.
func (h *DocumentHandler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid document ID", nil)
		return
	}

	var req verifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	if err := h.documents.Verify(id, *req.Verified); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFoundResponse(c, "Document")
			return
		}
		utils.InternalErrorResponse(c, "Failed to update document")
		return
	}

	utils.SuccessResponse(c, gin.H{"verified": *req.Verified})
}
