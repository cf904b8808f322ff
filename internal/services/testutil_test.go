// internal/services/testutil_test.go
package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zenwallet/loan-origination/internal/database"
	"github.com/zenwallet/loan-origination/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createTestLead(t *testing.T, db *gorm.DB, phone string) *models.Lead {
	t.Helper()

	now := time.Now()
	lead := &models.Lead{
		Phone:         phone,
		Name:          "Maria Silva",
		CPF:           "52998224725",
		MonthlyIncome: 5000,
		Stage:         models.LeadStageQualifying,
		ConsentGivenAt: &now,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func createTestApplication(t *testing.T, db *gorm.DB, lead *models.Lead, amount float64, installments int) *models.Application {
	t.Helper()

	app := &models.Application{
		LeadID:          lead.ID,
		RequestedAmount: amount,
		Installments:    installments,
		InterestRate:    1.99,
		MonthlyPayment:  944.94,
		TotalAmount:     11339.28,
		Purpose:         models.LoanPurposeOther,
		Status:          models.ApplicationStatusSimulated,
	}
	require.NoError(t, db.Create(app).Error)
	return app
}
