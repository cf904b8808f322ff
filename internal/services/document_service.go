// internal/services/document_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
)

// DocumentService tracks the KYC document checklist per lead. Resubmitting
// a document type overwrites the previous file and resets verification.
type DocumentService struct {
	db      *gorm.DB
	storage *StorageService
}

type DocumentChecklist struct {
	Total       int               `json:"total"`
	Sent        int               `json:"sent"`
	Missing     []MissingDocument `json:"missing"`
	AllComplete bool              `json:"all_complete"`
}

type MissingDocument struct {
	Type  models.DocumentType `json:"type"`
	Label string              `json:"label"`
}

type RegisterDocumentResult struct {
	Success    bool      `json:"success"`
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Message    string    `json:"message"`
}

func NewDocumentService(db *gorm.DB, storage *StorageService) *DocumentService {
	return &DocumentService{db: db, storage: storage}
}

// Register stores an inbound document for a lead. Media is archived through
// the storage service; an existing document of the same type is replaced.
func (s *DocumentService) Register(phone string, docType models.DocumentType, mediaURL, mimeType string) (*RegisterDocumentResult, error) {
	var lead models.Lead
	if err := s.db.Where("phone = ?", phone).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RegisterDocumentResult{Success: false, Message: "Lead não encontrado."}, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	fileName := fmt.Sprintf("%s_%s_%s", lead.ID, docType, uuid.New().String()[:8])
	filePath := mediaURL
	var fileSize int64

	if mediaURL != "" && s.storage != nil {
		stored, err := s.storage.ArchiveMedia(lead.ID, mediaURL, mimeType)
		if err != nil {
			// Keep the original URL so the document is not lost
			logrus.WithError(err).WithFields(logrus.Fields{
				"phone": phone,
				"type":  docType,
			}).Warn("Failed to archive document media")
		} else {
			filePath = stored.URL
			fileSize = stored.Size
		}
	}

	var existing models.Document
	err := s.db.Where("lead_id = ? AND type = ?", lead.ID, docType).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"file_name": fileName,
			"file_path": filePath,
			"mime_type": mimeType,
			"file_size": fileSize,
			"status":    models.DocumentStatusPending,
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"phone":       phone,
			"type":        docType,
			"document_id": existing.ID,
		}).Info("Document updated")

		return &RegisterDocumentResult{
			Success:    true,
			DocumentID: existing.ID,
			Message:    fmt.Sprintf("Documento %s atualizado com sucesso.", docType.Label()),
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	document := models.Document{
		LeadID:   lead.ID,
		Type:     docType,
		FileName: fileName,
		FilePath: filePath,
		MimeType: mimeType,
		FileSize: fileSize,
		Status:   models.DocumentStatusPending,
	}
	if err := s.db.Create(&document).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"phone":       phone,
		"type":        docType,
		"document_id": document.ID,
	}).Info("Document registered")

	return &RegisterDocumentResult{
		Success:    true,
		DocumentID: document.ID,
		Message:    fmt.Sprintf("Documento %s recebido com sucesso!", docType.Label()),
	}, nil
}

// Checklist reports which of the required documents the lead has sent.
func (s *DocumentService) Checklist(phone string) (*DocumentChecklist, error) {
	var lead models.Lead
	if err := s.db.Preload("Documents").Where("phone = ?", phone).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("lead not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return buildChecklist(lead.Documents), nil
}

// Verify records the manual review outcome for a document.
func (s *DocumentService) Verify(documentID uuid.UUID, verified bool) error {
	status := models.DocumentStatusRejected
	if verified {
		status = models.DocumentStatusVerified
	}

	result := s.db.Model(&models.Document{}).
		Where("id = ?", documentID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func buildChecklist(documents []models.Document) *DocumentChecklist {
	sent := make(map[models.DocumentType]bool, len(documents))
	for _, d := range documents {
		sent[d.Type] = true
	}

	var missing []MissingDocument
	for _, required := range models.RequiredDocuments {
		if !sent[required] {
			missing = append(missing, MissingDocument{Type: required, Label: required.Label()})
		}
	}

	return &DocumentChecklist{
		Total:       len(models.RequiredDocuments),
		Sent:        len(documents),
		Missing:     missing,
		AllComplete: len(missing) == 0,
	}
}
