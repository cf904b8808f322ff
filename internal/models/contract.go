// internal/models/contract.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract is the signed loan agreement, one-to-one with an Application.
// Terms is a frozen snapshot taken at generation time; later pricing changes
// never alter a generated contract.
type Contract struct {
	BaseModel
	ApplicationID      uuid.UUID      `json:"application_id" gorm:"type:uuid;uniqueIndex;not null"`
	ContractNumber     string         `json:"contract_number" gorm:"uniqueIndex;size:30;not null"`
	Terms              JSONB          `json:"terms" gorm:"type:jsonb"`
	Status             ContractStatus `json:"status" gorm:"type:varchar(20);default:'SENT';index"`
	SignedAt           *time.Time     `json:"signed_at"`
	SignatureHash      string         `json:"-" gorm:"size:128"`
	SignatureIP        string         `json:"-" gorm:"size:45"`
	SignerDocumentKey  string         `json:"-" gorm:"size:64;index"`
	FundingOperationKey string        `json:"-" gorm:"size:64;index"`

	Application *Application `json:"application,omitempty" gorm:"foreignKey:ApplicationID"`
}
