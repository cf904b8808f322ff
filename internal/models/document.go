// internal/models/document.go
package models

import "github.com/google/uuid"

// Document is a typed attachment sent by the lead. (LeadID, Type) is unique:
// re-sending a document of the same type overwrites the prior record.
type Document struct {
	BaseModel
	LeadID   uuid.UUID      `json:"lead_id" gorm:"type:uuid;not null;index:idx_documents_lead_type,unique"`
	Type     DocumentType   `json:"type" gorm:"type:varchar(20);not null;index:idx_documents_lead_type,unique"`
	FileName string         `json:"file_name" gorm:"size:255"`
	FilePath string         `json:"file_path" gorm:"size:500"`
	MimeType string         `json:"mime_type" gorm:"size:100"`
	FileSize int64          `json:"file_size"`
	Status   DocumentStatus `json:"status" gorm:"type:varchar(10);default:'PENDING'"`
}

// RequiredDocuments is the fixed set needed before credit analysis.
var RequiredDocuments = []DocumentType{
	DocumentTypeRGFront,
	DocumentTypeRGBack,
	DocumentTypeProofOfIncome,
	DocumentTypeProofOfAddress,
	DocumentTypeSelfie,
}

// DocumentLabels maps document types to the customer-facing pt-BR labels.
var DocumentLabels = map[DocumentType]string{
	DocumentTypeRGFront:        "Frente do RG",
	DocumentTypeRGBack:         "Verso do RG",
	DocumentTypeCPF:            "CPF",
	DocumentTypeCNH:            "CNH",
	DocumentTypeProofOfIncome:  "Comprovante de renda",
	DocumentTypeProofOfAddress: "Comprovante de endereço",
	DocumentTypeSelfie:         "Selfie com documento",
	DocumentTypeBankStatement:  "Extrato bancário",
	DocumentTypeOther:          "Documento",
}

// Label returns the customer-facing label for a document type.
func (t DocumentType) Label() string {
	if label, ok := DocumentLabels[t]; ok {
		return label
	}
	return string(t)
}
