// internal/services/credit_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/database"
	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
)

var ErrAlreadyAnalyzed = errors.New("application already has a credit analysis")

// CreditService runs the credit decision pipeline: bureau check, debt to
// income calculation, rule-based decision, and the resulting application
// and lead state transitions.
type CreditService struct {
	db     *gorm.DB
	bureau providers.BureauProvider
}

type CreditAnalysisResult struct {
	Score             int                   `json:"score"`
	Provider          string                `json:"provider"`
	FraudRisk         models.FraudRisk      `json:"fraud_risk"`
	DebtToIncome      float64               `json:"debt_to_income"`
	ExistingDebts     float64               `json:"existing_debts"`
	Decision          models.CreditDecision `json:"decision"`
	Reason            string                `json:"reason"`
	MaxApprovedAmount float64               `json:"max_approved_amount,omitempty"`
	SuggestedRate     float64               `json:"suggested_rate,omitempty"`
}

type creditDecision struct {
	decision          models.CreditDecision
	reason            string
	maxApprovedAmount float64
	suggestedRate     float64
}

func NewCreditService(db *gorm.DB, bureau providers.BureauProvider) *CreditService {
	return &CreditService{db: db, bureau: bureau}
}

// Analyze runs the full credit analysis for an application. Re-running an
// already analyzed application is a conflict, the stored decision stands.
func (s *CreditService) Analyze(ctx context.Context, phone string, applicationID uuid.UUID) (*CreditAnalysisResult, error) {
	var lead models.Lead
	if err := s.db.Where("phone = ?", phone).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("lead not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if lead.CPF == "" {
		return nil, errors.New("CPF not registered")
	}

	var application models.Application
	if err := s.db.First(&application, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("application not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if application.LeadID != lead.ID {
		return nil, errors.New("application does not belong to this lead")
	}

	var existingCount int64
	if err := s.db.Model(&models.CreditAnalysis{}).
		Where("application_id = ?", applicationID).
		Count(&existingCount).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existingCount > 0 {
		return nil, ErrAlreadyAnalyzed
	}

	bureauResult, err := s.bureau.CheckCredit(ctx, lead.CPF)
	if err != nil {
		return nil, fmt.Errorf("bureau check failed: %w", err)
	}

	// Estimate 3% of total outstanding debt as monthly payments
	monthlyIncome := lead.MonthlyIncome
	existingDebtPayments := bureauResult.ExistingDebts * 0.03
	totalMonthlyDebt := application.MonthlyPayment + existingDebtPayments

	debtToIncome := 999.0
	if monthlyIncome > 0 {
		debtToIncome = totalMonthlyDebt / monthlyIncome
	}

	decision := makeDecision(bureauResult.Score, bureauResult.FraudRisk, debtToIncome, application.RequestedAmount, monthlyIncome)

	newStatus := models.ApplicationStatusUnderReview
	newStage := models.LeadStageAnalyzing
	switch decision.decision {
	case models.CreditDecisionApproved:
		newStatus = models.ApplicationStatusApproved
		newStage = models.LeadStageApproved
	case models.CreditDecisionDenied:
		newStatus = models.ApplicationStatusDenied
		newStage = models.LeadStageDenied
	}

	analysis := models.CreditAnalysis{
		ApplicationID:  applicationID,
		CreditScore:    bureauResult.Score,
		ScoreProvider:  bureauResult.Provider,
		FraudRisk:      bureauResult.FraudRisk,
		IncomeVerified: monthlyIncome > 0,
		DebtToIncome:   debtToIncome,
		ExistingDebts:  bureauResult.ExistingDebts,
		Decision:       decision.decision,
		DecisionReason: decision.reason,
		AnalyzedAt:     time.Now(),
		RawResponse: models.JSONB{
			"score":          bureauResult.Score,
			"fraud_risk":     string(bureauResult.FraudRisk),
			"existing_debts": bureauResult.ExistingDebts,
			"provider":       bureauResult.Provider,
		},
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&analysis).Error; err != nil {
			return fmt.Errorf("failed to save analysis: %w", err)
		}

		appUpdates := map[string]interface{}{"status": newStatus}
		if decision.decision == models.CreditDecisionDenied {
			appUpdates["denial_reason"] = decision.reason
		}
		if decision.maxApprovedAmount > 0 {
			appUpdates["approved_amount"] = decision.maxApprovedAmount
		}
		if err := tx.Model(&models.Application{}).
			Where("id = ?", applicationID).
			Updates(appUpdates).Error; err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		if err := tx.Model(&models.Lead{}).
			Where("id = ?", lead.ID).
			Update("stage", newStage).Error; err != nil {
			return fmt.Errorf("failed to update lead stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"phone":          phone,
		"application_id": applicationID,
		"score":          bureauResult.Score,
		"decision":       decision.decision,
		"analysis_id":    analysis.ID,
	}).Info("Credit analysis completed")

	return &CreditAnalysisResult{
		Score:             bureauResult.Score,
		Provider:          bureauResult.Provider,
		FraudRisk:         bureauResult.FraudRisk,
		DebtToIncome:      math.Round(debtToIncome*10000) / 100,
		ExistingDebts:     bureauResult.ExistingDebts,
		Decision:          decision.decision,
		Reason:            decision.reason,
		MaxApprovedAmount: decision.maxApprovedAmount,
		SuggestedRate:     decision.suggestedRate,
	}, nil
}

// makeDecision applies the credit policy. Hard denials come first, then
// the manual review band, then tiered approval caps.
func makeDecision(score int, fraudRisk models.FraudRisk, debtToIncome, requestedAmount, monthlyIncome float64) creditDecision {
	if fraudRisk == models.FraudRiskHigh {
		return creditDecision{decision: models.CreditDecisionDenied, reason: "Alto risco de fraude identificado."}
	}
	if score < 300 {
		return creditDecision{decision: models.CreditDecisionDenied, reason: "Score de crédito abaixo do mínimo."}
	}
	if debtToIncome > 0.7 {
		return creditDecision{decision: models.CreditDecisionDenied, reason: "Comprometimento de renda acima do limite."}
	}

	if score < 500 || fraudRisk == models.FraudRiskMedium || debtToIncome > 0.5 {
		return creditDecision{
			decision:          models.CreditDecisionManualReview,
			reason:            "Análise precisa de revisão manual.",
			maxApprovedAmount: math.Min(requestedAmount, monthlyIncome*6),
		}
	}

	var maxAmount, suggestedRate float64
	switch {
	case score >= 800:
		maxAmount = math.Min(requestedAmount, monthlyIncome*15)
		suggestedRate = 1.49
	case score >= 650:
		maxAmount = math.Min(requestedAmount, monthlyIncome*10)
		suggestedRate = 1.99
	default:
		maxAmount = math.Min(requestedAmount, monthlyIncome*6)
		suggestedRate = 2.49
	}

	return creditDecision{
		decision:          models.CreditDecisionApproved,
		reason:            fmt.Sprintf("Aprovado com score %d. Perfil de crédito adequado.", score),
		maxApprovedAmount: math.Round(maxAmount*100) / 100,
		suggestedRate:     suggestedRate,
	}
}
