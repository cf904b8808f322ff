// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type LeadStage string

const (
	LeadStageNew              LeadStage = "NEW"
	LeadStageQualifying       LeadStage = "QUALIFYING"
	LeadStageSimulating       LeadStage = "SIMULATING"
	LeadStageDocumentsPending LeadStage = "DOCUMENTS_PENDING"
	LeadStageAnalyzing        LeadStage = "ANALYZING"
	LeadStageApproved         LeadStage = "APPROVED"
	LeadStageDenied           LeadStage = "DENIED"
	LeadStageContractSent     LeadStage = "CONTRACT_SENT"
	LeadStageContractSigned   LeadStage = "CONTRACT_SIGNED"
	LeadStageDisbursed        LeadStage = "DISBURSED"
	LeadStageCompleted        LeadStage = "COMPLETED"
	LeadStageCancelled        LeadStage = "CANCELLED"
)

func (s LeadStage) Valid() bool {
	switch s {
	case LeadStageNew, LeadStageQualifying, LeadStageSimulating, LeadStageDocumentsPending,
		LeadStageAnalyzing, LeadStageApproved, LeadStageDenied, LeadStageContractSent,
		LeadStageContractSigned, LeadStageDisbursed, LeadStageCompleted, LeadStageCancelled:
		return true
	}
	return false
}

type EmploymentType string

const (
	EmploymentTypeCLT           EmploymentType = "CLT"
	EmploymentTypePublicServant EmploymentType = "PUBLIC_SERVANT"
	EmploymentTypeSelfEmployed  EmploymentType = "SELF_EMPLOYED"
	EmploymentTypeBusinessOwner EmploymentType = "BUSINESS_OWNER"
	EmploymentTypeRetired       EmploymentType = "RETIRED"
	EmploymentTypeOther         EmploymentType = "OTHER"
)

type LoanPurpose string

const (
	LoanPurposeDebtConsolidation LoanPurpose = "DEBT_CONSOLIDATION"
	LoanPurposeHomeImprovement   LoanPurpose = "HOME_IMPROVEMENT"
	LoanPurposeMedical           LoanPurpose = "MEDICAL"
	LoanPurposeEducation         LoanPurpose = "EDUCATION"
	LoanPurposeVehicle           LoanPurpose = "VEHICLE"
	LoanPurposeTravel            LoanPurpose = "TRAVEL"
	LoanPurposeBusiness          LoanPurpose = "BUSINESS"
	LoanPurposeOther             LoanPurpose = "OTHER"
)

type ApplicationStatus string

const (
	ApplicationStatusSimulated           ApplicationStatus = "SIMULATED"
	ApplicationStatusUnderReview         ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved            ApplicationStatus = "APPROVED"
	ApplicationStatusDenied              ApplicationStatus = "DENIED"
	ApplicationStatusContractPending     ApplicationStatus = "CONTRACT_PENDING"
	ApplicationStatusDisbursementPending ApplicationStatus = "DISBURSEMENT_PENDING"
	ApplicationStatusDisbursed           ApplicationStatus = "DISBURSED"
)

// ActiveApplicationStatuses is the canonical definition of an "active"
// application: anything that has not reached a terminal outcome. A lead may
// hold at most one active application at a time.
var ActiveApplicationStatuses = []ApplicationStatus{
	ApplicationStatusSimulated,
	ApplicationStatusUnderReview,
	ApplicationStatusApproved,
	ApplicationStatusContractPending,
	ApplicationStatusDisbursementPending,
}

type CreditDecision string

const (
	CreditDecisionApproved     CreditDecision = "APPROVED"
	CreditDecisionDenied       CreditDecision = "DENIED"
	CreditDecisionManualReview CreditDecision = "MANUAL_REVIEW"
)

type FraudRisk string

const (
	FraudRiskLow    FraudRisk = "LOW"
	FraudRiskMedium FraudRisk = "MEDIUM"
	FraudRiskHigh   FraudRisk = "HIGH"
)

type ContractStatus string

const (
	ContractStatusSent      ContractStatus = "SENT"
	ContractStatusViewed    ContractStatus = "VIEWED"
	ContractStatusSigned    ContractStatus = "SIGNED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
	MessageRoleSystem    MessageRole = "SYSTEM"
)

type DocumentType string

const (
	DocumentTypeRGFront        DocumentType = "RG_FRONT"
	DocumentTypeRGBack         DocumentType = "RG_BACK"
	DocumentTypeCPF            DocumentType = "CPF"
	DocumentTypeCNH            DocumentType = "CNH"
	DocumentTypeProofOfIncome  DocumentType = "PROOF_OF_INCOME"
	DocumentTypeProofOfAddress DocumentType = "PROOF_OF_ADDRESS"
	DocumentTypeSelfie         DocumentType = "SELFIE"
	DocumentTypeBankStatement  DocumentType = "BANK_STATEMENT"
	DocumentTypeOther          DocumentType = "OTHER"
)

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusVerified DocumentStatus = "VERIFIED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)
