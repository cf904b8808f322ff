// internal/handlers/simulation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/zenwallet/loan-origination/internal/services"
	"github.com/zenwallet/loan-origination/internal/utils"
)

type SimulationHandler struct {
	engine *services.LoanEngine
}

func NewSimulationHandler(engine *services.LoanEngine) *SimulationHandler {
	return &SimulationHandler{engine: engine}
}

type simulationRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Installments  int     `json:"installments" validate:"required,gt=0"`
	MonthlyIncome float64 `json:"monthly_income" validate:"omitempty,gte=0"`
}

// Simulate prices a loan without touching any lead. Out-of-range values are
// clamped, not rejected, matching the conversational flow.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req simulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	simulation := h.engine.Simulate(req.Amount, req.Installments, req.MonthlyIncome)

	schedule := h.engine.GenerateSchedule(simulation.Amount, simulation.InterestRate, simulation.Installments)
	utils.SuccessResponse(c, gin.H{
		"simulation": simulation,
		"schedule":   schedule,
	})
}
