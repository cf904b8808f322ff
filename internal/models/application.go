// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is a formal loan request. LeadID is immutable after creation;
// the rate/payment/total fields are frozen from the pricing engine at
// creation time.
type Application struct {
	BaseModel
	LeadID          uuid.UUID         `json:"lead_id" gorm:"type:uuid;not null;index"`
	RequestedAmount float64           `json:"requested_amount" gorm:"not null"`
	ApprovedAmount  *float64          `json:"approved_amount"`
	Installments    int               `json:"installments" gorm:"not null"`
	InterestRate    float64           `json:"interest_rate"`
	MonthlyPayment  float64           `json:"monthly_payment"`
	TotalAmount     float64           `json:"total_amount"`
	Purpose         LoanPurpose       `json:"purpose" gorm:"type:varchar(30);default:'OTHER'"`
	Status          ApplicationStatus `json:"status" gorm:"type:varchar(30);default:'SIMULATED';index"`
	DenialReason    string            `json:"denial_reason,omitempty" gorm:"size:500"`

	// Relationships
	Lead           *Lead           `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
	CreditAnalysis *CreditAnalysis `json:"credit_analysis,omitempty" gorm:"foreignKey:ApplicationID"`
	Contract       *Contract       `json:"contract,omitempty" gorm:"foreignKey:ApplicationID"`
}

// Active reports whether this application still occupies the lead's single
// active-application slot.
func (a *Application) Active() bool {
	for _, s := range ActiveApplicationStatuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

// CreditAnalysis stores the outcome of a credit decision run. Immutable once
// created; RawResponse keeps the provider payload untouched for audit.
type CreditAnalysis struct {
	BaseModel
	ApplicationID  uuid.UUID      `json:"application_id" gorm:"type:uuid;uniqueIndex;not null"`
	CreditScore    int            `json:"credit_score"`
	ScoreProvider  string         `json:"score_provider" gorm:"size:50"`
	FraudRisk      FraudRisk      `json:"fraud_risk" gorm:"type:varchar(10)"`
	IncomeVerified bool           `json:"income_verified"`
	DebtToIncome   float64        `json:"debt_to_income"`
	ExistingDebts  float64        `json:"existing_debts"`
	Decision       CreditDecision `json:"decision" gorm:"type:varchar(20)"`
	DecisionReason string         `json:"decision_reason" gorm:"size:500"`
	RawResponse    JSONB          `json:"-" gorm:"type:jsonb"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}
