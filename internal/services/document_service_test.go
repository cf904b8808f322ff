// internal/services/document_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwallet/loan-origination/internal/models"
)

func TestRegisterDocument(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	service := NewDocumentService(db, nil)

	result, err := service.Register(lead.Phone, models.DocumentTypeRGFront, "https://media.example/rg.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, result.Success)

	var doc models.Document
	require.NoError(t, db.First(&doc, "lead_id = ? AND type = ?", lead.ID, models.DocumentTypeRGFront).Error)
	assert.Equal(t, "https://media.example/rg.jpg", doc.FilePath)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
}

func TestRegisterDocumentOverwritesSameType(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	service := NewDocumentService(db, nil)

	first, err := service.Register(lead.Phone, models.DocumentTypeSelfie, "https://media.example/one.jpg", "image/jpeg")
	require.NoError(t, err)

	second, err := service.Register(lead.Phone, models.DocumentTypeSelfie, "https://media.example/two.jpg", "image/png")
	require.NoError(t, err)
	assert.Equal(t, first.DocumentID, second.DocumentID)

	var count int64
	require.NoError(t, db.Model(&models.Document{}).
		Where("lead_id = ? AND type = ?", lead.ID, models.DocumentTypeSelfie).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var doc models.Document
	require.NoError(t, db.First(&doc, "id = ?", second.DocumentID).Error)
	assert.Equal(t, "https://media.example/two.jpg", doc.FilePath)
	assert.Equal(t, "image/png", doc.MimeType)
}

func TestRegisterDocumentUnknownLead(t *testing.T) {
	db := newTestDB(t)
	service := NewDocumentService(db, nil)

	result, err := service.Register("5599999999999", models.DocumentTypeRGFront, "", "")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestChecklist(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	service := NewDocumentService(db, nil)

	checklist, err := service.Checklist(lead.Phone)
	require.NoError(t, err)
	assert.Equal(t, 5, checklist.Total)
	assert.Equal(t, 0, checklist.Sent)
	assert.Len(t, checklist.Missing, 5)
	assert.False(t, checklist.AllComplete)

	for _, docType := range models.RequiredDocuments {
		_, err := service.Register(lead.Phone, docType, "https://media.example/doc.jpg", "image/jpeg")
		require.NoError(t, err)
	}

	checklist, err = service.Checklist(lead.Phone)
	require.NoError(t, err)
	assert.Equal(t, 5, checklist.Sent)
	assert.Empty(t, checklist.Missing)
	assert.True(t, checklist.AllComplete)
}

func TestVerifyDocument(t *testing.T) {
	db := newTestDB(t)
	lead := createTestLead(t, db, "5511987654321")
	service := NewDocumentService(db, nil)

	result, err := service.Register(lead.Phone, models.DocumentTypeProofOfIncome, "https://media.example/income.pdf", "application/pdf")
	require.NoError(t, err)

	require.NoError(t, service.Verify(result.DocumentID, true))

	var doc models.Document
	require.NoError(t, db.First(&doc, "id = ?", result.DocumentID).Error)
	assert.Equal(t, models.DocumentStatusVerified, doc.Status)

	require.NoError(t, service.Verify(result.DocumentID, false))
	require.NoError(t, db.First(&doc, "id = ?", result.DocumentID).Error)
	assert.Equal(t, models.DocumentStatusRejected, doc.Status)
}
