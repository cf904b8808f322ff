// internal/models/lead.go
package models

import "time"

// Lead is a customer in the origination funnel, keyed by phone number.
type Lead struct {
	BaseModel
	Phone          string         `json:"phone" gorm:"uniqueIndex;size:20;not null"`
	Name           string         `json:"name" gorm:"size:255"`
	CPF            string         `json:"-" gorm:"size:11;index"`
	Email          string         `json:"email" gorm:"size:255"`
	BirthDate      *time.Time     `json:"birth_date"`
	MonthlyIncome  float64        `json:"monthly_income"`
	EmployerName   string         `json:"employer_name" gorm:"size:255"`
	EmploymentType EmploymentType `json:"employment_type" gorm:"type:varchar(20)"`
	Stage          LeadStage      `json:"stage" gorm:"type:varchar(20);default:'NEW';index"`
	ConsentGivenAt *time.Time     `json:"consent_given_at"`

	// Relationships
	Applications  []Application  `json:"applications,omitempty" gorm:"foreignKey:LeadID"`
	Documents     []Document     `json:"documents,omitempty" gorm:"foreignKey:LeadID"`
	Conversations []Conversation `json:"conversations,omitempty" gorm:"foreignKey:LeadID"`
}

// HasConsent reports whether the lead has recorded LGPD consent, which gates
// capture of sensitive fields (CPF, birth date, income).
func (l *Lead) HasConsent() bool {
	return l.ConsentGivenAt != nil
}

// MaskedCPF returns the CPF with only the last four digits visible.
func (l *Lead) MaskedCPF() string {
	if len(l.CPF) != 11 {
		return ""
	}
	return "***" + l.CPF[7:]
}
