// internal/services/credit_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
)

type fakeBureau struct {
	result providers.BureauResult
}

func (f *fakeBureau) Name() string { return "fake" }

func (f *fakeBureau) CheckCredit(ctx context.Context, cpf string) (*providers.BureauResult, error) {
	r := f.result
	r.Provider = f.Name()
	return &r, nil
}

func TestMakeDecision(t *testing.T) {
	tests := []struct {
		name         string
		score        int
		fraudRisk    models.FraudRisk
		dti          float64
		requested    float64
		income       float64
		wantDecision models.CreditDecision
		wantMax      float64
		wantRate     float64
	}{
		{"high fraud denies regardless of score", 900, models.FraudRiskHigh, 0.1, 10000, 5000, models.CreditDecisionDenied, 0, 0},
		{"score below minimum denies", 250, models.FraudRiskLow, 0.1, 10000, 5000, models.CreditDecisionDenied, 0, 0},
		{"dti above ceiling denies", 850, models.FraudRiskLow, 0.75, 10000, 5000, models.CreditDecisionDenied, 0, 0},
		{"low score goes to manual review", 450, models.FraudRiskLow, 0.1, 10000, 5000, models.CreditDecisionManualReview, 10000, 0},
		{"medium fraud goes to manual review", 850, models.FraudRiskMedium, 0.1, 10000, 5000, models.CreditDecisionManualReview, 10000, 0},
		{"high dti goes to manual review", 850, models.FraudRiskLow, 0.6, 10000, 5000, models.CreditDecisionManualReview, 10000, 0},
		{"top tier approves at best rate", 850, models.FraudRiskLow, 0.1, 10000, 5000, models.CreditDecisionApproved, 10000, 1.49},
		{"mid tier caps at ten times income", 700, models.FraudRiskLow, 0.1, 80000, 5000, models.CreditDecisionApproved, 50000, 1.99},
		{"low tier caps at six times income", 550, models.FraudRiskLow, 0.1, 80000, 5000, models.CreditDecisionApproved, 30000, 2.49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeDecision(tt.score, tt.fraudRisk, tt.dti, tt.requested, tt.income)
			assert.Equal(t, tt.wantDecision, got.decision)
			if tt.wantDecision == models.CreditDecisionApproved {
				assert.Equal(t, tt.wantMax, got.maxApprovedAmount)
				assert.Equal(t, tt.wantRate, got.suggestedRate)
			}
			if tt.wantDecision == models.CreditDecisionManualReview {
				assert.Equal(t, tt.wantMax, got.maxApprovedAmount)
			}
			assert.NotEmpty(t, got.reason)
		})
	}
}

func TestAnalyzeApproved(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := createTestApplication(t, db, lead, 10000, 12)

	service := NewCreditService(db, &fakeBureau{result: providers.BureauResult{
		Score:     850,
		FraudRisk: models.FraudRiskLow,
	}})

	result, err := service.Analyze(context.Background(), lead.Phone, app.ID)
	require.NoError(t, err)

	assert.Equal(t, models.CreditDecisionApproved, result.Decision)
	assert.Equal(t, 850, result.Score)

	var updated models.Application
	require.NoError(t, db.First(&updated, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedAmount)
	assert.Equal(t, 10000.0, *updated.ApprovedAmount)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageApproved, updatedLead.Stage)

	var analysis models.CreditAnalysis
	require.NoError(t, db.First(&analysis, "application_id = ?", app.ID).Error)
	assert.Equal(t, models.CreditDecisionApproved, analysis.Decision)
	assert.True(t, analysis.IncomeVerified)
}

func TestAnalyzeDenied(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := createTestApplication(t, db, lead, 10000, 12)

	service := NewCreditService(db, &fakeBureau{result: providers.BureauResult{
		Score:     900,
		FraudRisk: models.FraudRiskHigh,
	}})

	result, err := service.Analyze(context.Background(), lead.Phone, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditDecisionDenied, result.Decision)

	var updated models.Application
	require.NoError(t, db.First(&updated, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusDenied, updated.Status)
	assert.NotEmpty(t, updated.DenialReason)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageDenied, updatedLead.Stage)
}

func TestAnalyzeManualReview(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := createTestApplication(t, db, lead, 10000, 12)

	service := NewCreditService(db, &fakeBureau{result: providers.BureauResult{
		Score:     450,
		FraudRisk: models.FraudRiskLow,
	}})

	result, err := service.Analyze(context.Background(), lead.Phone, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditDecisionManualReview, result.Decision)

	var updated models.Application
	require.NoError(t, db.First(&updated, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusUnderReview, updated.Status)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageAnalyzing, updatedLead.Stage)
}

func TestAnalyzeRejectsSecondRun(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := createTestApplication(t, db, lead, 10000, 12)

	service := NewCreditService(db, &fakeBureau{result: providers.BureauResult{
		Score:     850,
		FraudRisk: models.FraudRiskLow,
	}})

	_, err := service.Analyze(context.Background(), lead.Phone, app.ID)
	require.NoError(t, err)

	_, err = service.Analyze(context.Background(), lead.Phone, app.ID)
	assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
}

func TestAnalyzeWithoutIncome(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	require.NoError(t, db.Model(lead).Update("monthly_income", 0).Error)
	app := createTestApplication(t, db, lead, 10000, 12)

	service := NewCreditService(db, &fakeBureau{result: providers.BureauResult{
		Score:     850,
		FraudRisk: models.FraudRiskLow,
	}})

	// Zero income makes DTI effectively infinite, which is a hard denial.
	result, err := service.Analyze(context.Background(), lead.Phone, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditDecisionDenied, result.Decision)
}
