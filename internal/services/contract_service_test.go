// internal/services/contract_service_test.go
package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
)

type fakeSignature struct {
	calls int
}

func (f *fakeSignature) CreateAndSendContract(ctx context.Context, params providers.ContractSignatureRequest) (*providers.ContractSignatureResult, error) {
	f.calls++
	return &providers.ContractSignatureResult{
		DocumentKey: "doc-key-1",
		SigningURL:  "https://sign.example/doc-key-1",
	}, nil
}

func (f *fakeSignature) CancelDocument(ctx context.Context, documentKey string) error { return nil }

type fakeFunding struct {
	calls int
}

func (f *fakeFunding) CreateDebtAndDisburse(ctx context.Context, params providers.DisbursementRequest) (*providers.DisbursementResult, error) {
	f.calls++
	return &providers.DisbursementResult{
		Success:      true,
		OperationKey: "op-key-1",
		Status:       "waiting_signature",
	}, nil
}

func (f *fakeFunding) GetDebtStatus(ctx context.Context, operationKey string) (string, error) {
	return "waiting_signature", nil
}

func approvedApplication(t *testing.T, db *gorm.DB, lead *models.Lead) *models.Application {
	t.Helper()
	app := createTestApplication(t, db, lead, 10000, 12)
	require.NoError(t, db.Model(app).Update("status", models.ApplicationStatusApproved).Error)
	app.Status = models.ApplicationStatusApproved
	return app
}

func TestGenerateContract(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)

	signature := &fakeSignature{}
	service := NewContractService(db, signature, nil)

	result, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Regexp(t, regexp.MustCompile(`^ZW-\d{4}-[0-9A-F]{12}$`), result.ContractNumber)
	assert.Equal(t, "https://sign.example/doc-key-1", result.SigningURL)
	assert.Equal(t, 1, signature.calls)

	var contract models.Contract
	require.NoError(t, db.First(&contract, "application_id = ?", app.ID).Error)
	assert.Equal(t, models.ContractStatusSent, contract.Status)
	assert.Equal(t, "doc-key-1", contract.SignerDocumentKey)
	assert.Equal(t, 10000.0, contract.Terms["loan_amount"])

	var updatedApp models.Application
	require.NoError(t, db.First(&updatedApp, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusContractPending, updatedApp.Status)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageContractSent, updatedLead.Stage)
}

func TestGenerateContractIdempotent(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, nil, nil)

	first, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)

	// Second call finds the existing contract even though the application
	// has moved to CONTRACT_PENDING.
	second, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, first.ContractNumber, second.ContractNumber)

	var count int64
	require.NoError(t, db.Model(&models.Contract{}).Where("application_id = ?", app.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerateContractRequiresApproval(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := createTestApplication(t, db, lead, 10000, 12) // still SIMULATED
	service := NewContractService(db, nil, nil)

	result, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSignContract(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	funding := &fakeFunding{}
	service := NewContractService(db, nil, funding)

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)

	require.NoError(t, service.Sign(context.Background(), generated.ContractID, "hash-abc", "203.0.113.7"))
	assert.Equal(t, 1, funding.calls)

	var contract models.Contract
	require.NoError(t, db.First(&contract, "id = ?", generated.ContractID).Error)
	assert.Equal(t, models.ContractStatusSigned, contract.Status)
	assert.NotNil(t, contract.SignedAt)
	assert.Equal(t, "op-key-1", contract.FundingOperationKey)

	var updatedApp models.Application
	require.NoError(t, db.First(&updatedApp, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusDisbursementPending, updatedApp.Status)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageContractSigned, updatedLead.Stage)

	// Signing again is a no-op, no second disbursement request
	require.NoError(t, service.Sign(context.Background(), generated.ContractID, "hash-other", "198.51.100.1"))
	assert.Equal(t, 1, funding.calls)
}

func TestHandleSignerEventSign(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, &fakeSignature{}, nil)

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)

	require.NoError(t, service.HandleSignerEvent(context.Background(), "doc-key-1", "sign"))

	var contract models.Contract
	require.NoError(t, db.First(&contract, "id = ?", generated.ContractID).Error)
	assert.Equal(t, models.ContractStatusSigned, contract.Status)

	// Unknown document keys are acknowledged without error
	require.NoError(t, service.HandleSignerEvent(context.Background(), "unknown-key", "sign"))
}

func TestHandleSignerEventCancel(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, &fakeSignature{}, nil)

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)

	require.NoError(t, service.HandleSignerEvent(context.Background(), "doc-key-1", "cancel"))

	var contract models.Contract
	require.NoError(t, db.First(&contract, "id = ?", generated.ContractID).Error)
	assert.Equal(t, models.ContractStatusCancelled, contract.Status)

	// Application returns to APPROVED so a new contract can be issued
	var updatedApp models.Application
	require.NoError(t, db.First(&updatedApp, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, updatedApp.Status)
}

func TestHandleFunderEvent(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, nil, &fakeFunding{})

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)
	require.NoError(t, service.Sign(context.Background(), generated.ContractID, "hash", ""))

	require.NoError(t, service.HandleFunderEvent("op-key-1", "disbursed"))

	var updatedApp models.Application
	require.NoError(t, db.First(&updatedApp, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusDisbursed, updatedApp.Status)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageDisbursed, updatedLead.Stage)

	require.NoError(t, service.HandleFunderEvent("op-key-1", "paid"))
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageCompleted, updatedLead.Stage)

	// Unknown operation keys are acknowledged without error
	require.NoError(t, service.HandleFunderEvent("missing-op", "disbursed"))
}

func TestHandleFunderEventPaidWithoutDisbursed(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, nil, &fakeFunding{})

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)
	require.NoError(t, service.Sign(context.Background(), generated.ContractID, "hash", ""))

	// paid arriving without a prior disbursed event still settles the loan
	require.NoError(t, service.HandleFunderEvent("op-key-1", "paid"))

	var updatedApp models.Application
	require.NoError(t, db.First(&updatedApp, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusDisbursed, updatedApp.Status)

	var updatedLead models.Lead
	require.NoError(t, db.First(&updatedLead, "id = ?", lead.ID).Error)
	assert.Equal(t, models.LeadStageCompleted, updatedLead.Stage)
}

func TestViewContract(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	app := approvedApplication(t, db, lead)
	service := NewContractService(db, nil, nil)

	generated, err := service.Generate(context.Background(), app.ID)
	require.NoError(t, err)

	viewed, err := service.View(generated.ContractNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusViewed, viewed.Status)

	// Viewing again keeps VIEWED; viewing a signed contract keeps SIGNED
	require.NoError(t, service.Sign(context.Background(), generated.ContractID, "hash", ""))
	viewed, err = service.View(generated.ContractNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusSigned, viewed.Status)
}
