// internal/handlers/contract.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/services"
	"github.com/zenwallet/loan-origination/internal/utils"
)

type ContractHandler struct {
	contracts *services.ContractService
}

func NewContractHandler(contracts *services.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Get returns a contract by its number. Fetching a freshly sent contract
// records the first view.
func (h *ContractHandler) Get(c *gin.Context) {
	number := c.Param("number")

	contract, err := h.contracts.View(number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFoundResponse(c, "Contract")
		return
	}
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load contract")
		return
	}

	utils.SuccessResponse(c, contract)
}
