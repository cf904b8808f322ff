// internal/services/contract_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/database"
	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// ContractService owns the contract lifecycle: generation from an approved
// application, signature handling, and the disbursement handoff. External
// providers are optional; without them the flow degrades to record-keeping.
type ContractService struct {
	db        *gorm.DB
	signature providers.SignatureProvider
	funding   providers.FundingProvider
}

type GenerateContractResult struct {
	Success        bool      `json:"success"`
	ContractID     uuid.UUID `json:"contract_id,omitempty"`
	ContractNumber string    `json:"contract_number,omitempty"`
	SigningURL     string    `json:"signing_url,omitempty"`
	Message        string    `json:"message"`
}

func NewContractService(db *gorm.DB, signature providers.SignatureProvider, funding providers.FundingProvider) *ContractService {
	return &ContractService{db: db, signature: signature, funding: funding}
}

// Generate creates the contract for an approved application. Calling it
// again for the same application returns the existing contract unchanged.
func (s *ContractService) Generate(ctx context.Context, applicationID uuid.UUID) (*GenerateContractResult, error) {
	var application models.Application
	err := s.db.Preload("Lead").Preload("CreditAnalysis").
		First(&application, "id = ?", applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &GenerateContractResult{Success: false, Message: "Proposta não encontrada."}, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// The existing-contract check runs before the status gate: after the
	// first generation the application sits in CONTRACT_PENDING, and a
	// repeat call must return the same contract, not a status error.
	var existing models.Contract
	err = s.db.Where("application_id = ?", applicationID).First(&existing).Error
	if err == nil {
		return &GenerateContractResult{
			Success:        true,
			ContractID:     existing.ID,
			ContractNumber: existing.ContractNumber,
			Message:        "Contrato já gerado anteriormente.",
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if application.Status != models.ApplicationStatusApproved {
		return &GenerateContractResult{Success: false, Message: "Proposta precisa estar aprovada para gerar contrato."}, nil
	}

	contractNumber, err := utils.GenerateContractNumber()
	if err != nil {
		return nil, err
	}

	approvedAmount := application.RequestedAmount
	if application.ApprovedAmount != nil {
		approvedAmount = *application.ApprovedAmount
	}

	terms := models.JSONB{
		"borrower_name":       application.Lead.Name,
		"borrower_cpf":        application.Lead.CPF,
		"borrower_phone":      application.Lead.Phone,
		"loan_amount":         approvedAmount,
		"installments":        application.Installments,
		"interest_rate":       application.InterestRate,
		"monthly_payment":     application.MonthlyPayment,
		"total_amount":        application.TotalAmount,
		"first_due_date":      firstDueDate().Format("2006-01-02"),
		"last_due_date":       lastDueDate(application.Installments).Format("2006-01-02"),
		"disbursement_method": "PIX",
		"generated_at":        time.Now().Format(time.RFC3339),
	}

	contract := models.Contract{
		ApplicationID:  applicationID,
		ContractNumber: contractNumber,
		Terms:          terms,
		Status:         models.ContractStatusSent,
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&contract).Error; err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}
		if err := tx.Model(&models.Application{}).
			Where("id = ?", applicationID).
			Update("status", models.ApplicationStatusContractPending).Error; err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		if err := tx.Model(&models.Lead{}).
			Where("id = ?", application.LeadID).
			Update("stage", models.LeadStageContractSent).Error; err != nil {
			return fmt.Errorf("failed to update lead stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &GenerateContractResult{
		Success:        true,
		ContractID:     contract.ID,
		ContractNumber: contractNumber,
		Message:        fmt.Sprintf("Contrato nº %s gerado com sucesso! Enviaremos o link para assinatura digital.", contractNumber),
	}

	// Signature dispatch failures do not roll back the contract; the
	// document can be re-sent later.
	if s.signature != nil {
		signResult, err := s.signature.CreateAndSendContract(ctx, providers.ContractSignatureRequest{
			ContractContent: renderContractHTML(contractNumber, terms),
			FileName:        contractNumber + ".html",
			SignerName:      application.Lead.Name,
			SignerEmail:     application.Lead.Email,
			SignerCPF:       application.Lead.CPF,
			SignerPhone:     application.Lead.Phone,
		})
		if err != nil {
			logrus.WithError(err).WithField("contract_number", contractNumber).
				Error("Failed to dispatch contract for signature")
		} else {
			s.db.Model(&contract).Update("signer_document_key", signResult.DocumentKey)
			result.SigningURL = signResult.SigningURL
		}
	}

	logrus.WithFields(logrus.Fields{
		"application_id":  applicationID,
		"contract_id":     contract.ID,
		"contract_number": contractNumber,
	}).Info("Contract generated")

	return result, nil
}

// Sign marks the contract as signed and moves the application into the
// disbursement queue. Idempotent: signing a signed contract is a no-op.
func (s *ContractService) Sign(ctx context.Context, contractID uuid.UUID, signatureHash, signatureIP string) error {
	var contract models.Contract
	err := s.db.Preload("Application").First(&contract, "id = ?", contractID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("contract not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if contract.Status == models.ContractStatusSigned {
		return nil
	}
	if contract.Status == models.ContractStatusCancelled {
		return errors.New("contract is cancelled")
	}

	now := time.Now()
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contract{}).
			Where("id = ?", contractID).
			Updates(map[string]interface{}{
				"status":         models.ContractStatusSigned,
				"signed_at":      now,
				"signature_hash": signatureHash,
				"signature_ip":   signatureIP,
			}).Error; err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}
		if err := tx.Model(&models.Application{}).
			Where("id = ?", contract.ApplicationID).
			Update("status", models.ApplicationStatusDisbursementPending).Error; err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		if err := tx.Model(&models.Lead{}).
			Where("id = ?", contract.Application.LeadID).
			Update("stage", models.LeadStageContractSigned).Error; err != nil {
			return fmt.Errorf("failed to update lead stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("contract_id", contractID).Info("Contract signed")

	// Disbursement is best effort here; the funder webhook drives the
	// final state either way.
	if s.funding != nil {
		s.requestDisbursement(ctx, contractID)
	}
	return nil
}

// View records that the customer opened the contract. Only a SENT contract
// transitions; later states are preserved.
func (s *ContractService) View(contractNumber string) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.Preload("Application").Where("contract_number = ?", contractNumber).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if contract.Status == models.ContractStatusSent {
		if err := s.db.Model(&contract).Update("status", models.ContractStatusViewed).Error; err != nil {
			return nil, fmt.Errorf("failed to update contract: %w", err)
		}
		contract.Status = models.ContractStatusViewed
	}
	return &contract, nil
}

// HandleSignerEvent reacts to signature platform events, resolved by the
// provider's document key.
func (s *ContractService) HandleSignerEvent(ctx context.Context, documentKey, event string) error {
	var contract models.Contract
	err := s.db.Preload("Application").Where("signer_document_key = ?", documentKey).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{
				"document_key": documentKey,
				"event":        event,
			}).Warn("Signer event for unknown contract")
			return nil
		}
		return fmt.Errorf("database error: %w", err)
	}

	switch event {
	case "sign", "auto_close":
		return s.Sign(ctx, contract.ID, "provider:"+documentKey, "")
	case "cancel", "deadline":
		return s.cancel(&contract)
	default:
		logrus.WithFields(logrus.Fields{
			"event":       event,
			"contract_id": contract.ID,
		}).Info("Ignoring signer event")
		return nil
	}
}

// HandleFunderEvent reacts to disbursement status updates, resolved by the
// funding operation key.
func (s *ContractService) HandleFunderEvent(operationKey, status string) error {
	var contract models.Contract
	err := s.db.Preload("Application").Where("funding_operation_key = ?", operationKey).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{
				"operation_key": operationKey,
				"status":        status,
			}).Warn("Funder event for unknown operation")
			return nil
		}
		return fmt.Errorf("database error: %w", err)
	}

	switch status {
	case "disbursed":
		return database.WithTransaction(s.db, func(tx *gorm.DB) error {
			if err := tx.Model(&models.Application{}).
				Where("id = ?", contract.ApplicationID).
				Update("status", models.ApplicationStatusDisbursed).Error; err != nil {
				return fmt.Errorf("failed to update application: %w", err)
			}
			if err := tx.Model(&models.Lead{}).
				Where("id = ?", contract.Application.LeadID).
				Update("stage", models.LeadStageDisbursed).Error; err != nil {
				return fmt.Errorf("failed to update lead stage: %w", err)
			}
			return nil
		})
	case "paid":
		// paid can arrive without a prior disbursed event, so it settles
		// the application as well.
		return database.WithTransaction(s.db, func(tx *gorm.DB) error {
			if err := tx.Model(&models.Application{}).
				Where("id = ?", contract.ApplicationID).
				Update("status", models.ApplicationStatusDisbursed).Error; err != nil {
				return fmt.Errorf("failed to update application: %w", err)
			}
			if err := tx.Model(&models.Lead{}).
				Where("id = ?", contract.Application.LeadID).
				Update("stage", models.LeadStageCompleted).Error; err != nil {
				return fmt.Errorf("failed to update lead stage: %w", err)
			}
			return nil
		})
	default:
		logrus.WithFields(logrus.Fields{
			"status":      status,
			"contract_id": contract.ID,
		}).Info("Ignoring funder status")
		return nil
	}
}

func (s *ContractService) cancel(contract *models.Contract) error {
	if contract.Status == models.ContractStatusSigned {
		return errors.New("cannot cancel a signed contract")
	}
	if contract.Status == models.ContractStatusCancelled {
		return nil
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contract{}).
			Where("id = ?", contract.ID).
			Update("status", models.ContractStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel contract: %w", err)
		}
		// The application returns to APPROVED so a new contract can be issued
		if err := tx.Model(&models.Application{}).
			Where("id = ?", contract.ApplicationID).
			Update("status", models.ApplicationStatusApproved).Error; err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		return nil
	})
}

func (s *ContractService) requestDisbursement(ctx context.Context, contractID uuid.UUID) {
	var contract models.Contract
	if err := s.db.Preload("Application.Lead").First(&contract, "id = ?", contractID).Error; err != nil {
		logrus.WithError(err).WithField("contract_id", contractID).Error("Failed to load contract for disbursement")
		return
	}

	lead := contract.Application.Lead
	approvedAmount := contract.Application.RequestedAmount
	if contract.Application.ApprovedAmount != nil {
		approvedAmount = *contract.Application.ApprovedAmount
	}

	birthDate := ""
	if lead.BirthDate != nil {
		birthDate = lead.BirthDate.Format("2006-01-02")
	}

	result, err := s.funding.CreateDebtAndDisburse(ctx, providers.DisbursementRequest{
		BorrowerName:        lead.Name,
		BorrowerCPF:         lead.CPF,
		BorrowerPhone:       lead.Phone,
		BorrowerEmail:       lead.Email,
		BorrowerBirthDate:   birthDate,
		Amount:              approvedAmount,
		Installments:        contract.Application.Installments,
		InterestRateMonthly: contract.Application.InterestRate,
		MonthlyPayment:      contract.Application.MonthlyPayment,
		TotalAmount:         contract.Application.TotalAmount,
		FirstDueDate:        firstDueDate().Format("2006-01-02"),
		PixKey:              lead.CPF,
		PixKeyType:          "cpf",
		ContractNumber:      contract.ContractNumber,
	})
	if err != nil {
		logrus.WithError(err).WithField("contract_id", contractID).Error("Disbursement request failed")
		return
	}

	if err := s.db.Model(&models.Contract{}).
		Where("id = ?", contractID).
		Update("funding_operation_key", result.OperationKey).Error; err != nil {
		logrus.WithError(err).WithField("contract_id", contractID).Error("Failed to store funding operation key")
	}
}

// Installments fall due on the 10th of each month.
func firstDueDate() time.Time {
	d := time.Now().AddDate(0, 1, 0)
	return time.Date(d.Year(), d.Month(), 10, 0, 0, 0, 0, time.UTC)
}

func lastDueDate(installments int) time.Time {
	d := time.Now().AddDate(0, installments, 0)
	return time.Date(d.Year(), d.Month(), 10, 0, 0, 0, 0, time.UTC)
}

func renderContractHTML(contractNumber string, terms models.JSONB) string {
	return fmt.Sprintf(`<html><body>
<h1>Contrato de Empréstimo Pessoal nº %s</h1>
<p>Tomador: %v (CPF %v)</p>
<p>Valor do empréstimo: R$ %.2f</p>
<p>Parcelas: %v de R$ %.2f</p>
<p>Taxa de juros: %.2f%% a.m.</p>
<p>Valor total: R$ %.2f</p>
<p>Primeiro vencimento: %v</p>
<p>Desembolso via PIX após assinatura.</p>
</body></html>`,
		contractNumber,
		terms["borrower_name"], terms["borrower_cpf"],
		terms["loan_amount"],
		terms["installments"], terms["monthly_payment"],
		terms["interest_rate"],
		terms["total_amount"],
		terms["first_due_date"],
	)
}
