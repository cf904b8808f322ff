// internal/services/tools.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/database"
	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// ToolRegistry is the closed set of capabilities the conversational agent
// can invoke. Every handler returns a JSON string for the model; isError
// marks tool_result blocks so the model can recover conversationally.
type ToolRegistry struct {
	db        *gorm.DB
	engine    *LoanEngine
	credit    *CreditService
	documents *DocumentService
	contracts *ContractService
}

type ToolResult struct {
	Content string
	IsError bool
}

func NewToolRegistry(db *gorm.DB, engine *LoanEngine, credit *CreditService, documents *DocumentService, contracts *ContractService) *ToolRegistry {
	return &ToolRegistry{
		db:        db,
		engine:    engine,
		credit:    credit,
		documents: documents,
		contracts: contracts,
	}
}

// Definitions returns the tool schemas offered to the model.
func (r *ToolRegistry) Definitions() []providers.ToolDefinition {
	return []providers.ToolDefinition{
		{
			Name:        "get_lead",
			Description: "Busca informações do lead/cliente pelo telefone. Use para verificar dados já cadastrados.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone": map[string]interface{}{"type": "string", "description": "Telefone do lead"},
			}, "phone"),
		},
		{
			Name:        "record_consent",
			Description: "Registra o consentimento LGPD do cliente. OBRIGATÓRIO antes de coletar CPF ou dados pessoais. Use quando o cliente concordar com o tratamento de dados.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone":   map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"granted": map[string]interface{}{"type": "boolean", "description": "Se o cliente concedeu consentimento (true) ou recusou (false)"},
			}, "phone", "granted"),
		},
		{
			Name:        "update_lead",
			Description: "Atualiza dados do lead (nome, CPF, email, renda, empregador, etc). Use quando o cliente fornecer informações pessoais. Requer consentimento LGPD prévio para dados sensíveis.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone":           map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"name":            map[string]interface{}{"type": "string", "description": "Nome completo"},
				"cpf":             map[string]interface{}{"type": "string", "description": "CPF (apenas números)"},
				"email":           map[string]interface{}{"type": "string", "description": "Email"},
				"birth_date":      map[string]interface{}{"type": "string", "description": "Data de nascimento (YYYY-MM-DD)"},
				"monthly_income":  map[string]interface{}{"type": "number", "description": "Renda mensal em reais"},
				"employer_name":   map[string]interface{}{"type": "string", "description": "Nome do empregador"},
				"employment_type": map[string]interface{}{"type": "string", "enum": []string{"CLT", "PUBLIC_SERVANT", "SELF_EMPLOYED", "BUSINESS_OWNER", "RETIRED", "OTHER"}},
			}, "phone"),
		},
		{
			Name:        "simulate_loan",
			Description: "Faz simulação de empréstimo pessoal. Retorna parcelas, juros, CET. Use quando o cliente quiser saber valores.",
			InputSchema: objectSchema(map[string]interface{}{
				"amount":         map[string]interface{}{"type": "number", "description": "Valor do empréstimo em reais"},
				"installments":   map[string]interface{}{"type": "number", "description": "Número de parcelas"},
				"monthly_income": map[string]interface{}{"type": "number", "description": "Renda mensal para cálculo personalizado (opcional)"},
			}, "amount", "installments"),
		},
		{
			Name:        "create_application",
			Description: "Cria uma proposta/solicitação de empréstimo formal. Use quando o cliente confirmar que deseja prosseguir com a simulação.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone":        map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"amount":       map[string]interface{}{"type": "number", "description": "Valor do empréstimo"},
				"installments": map[string]interface{}{"type": "number", "description": "Número de parcelas"},
				"purpose":      map[string]interface{}{"type": "string", "enum": []string{"DEBT_CONSOLIDATION", "HOME_IMPROVEMENT", "MEDICAL", "EDUCATION", "VEHICLE", "TRAVEL", "BUSINESS", "OTHER"}},
			}, "phone", "amount", "installments"),
		},
		{
			Name:        "check_documents",
			Description: "Verifica quais documentos o cliente já enviou e quais ainda faltam.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone": map[string]interface{}{"type": "string", "description": "Telefone do lead"},
			}, "phone"),
		},
		{
			Name:        "register_document",
			Description: "Registra um documento enviado pelo cliente (foto de RG, comprovante de renda, etc).",
			InputSchema: objectSchema(map[string]interface{}{
				"phone":         map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"document_type": map[string]interface{}{"type": "string", "enum": []string{"RG_FRONT", "RG_BACK", "CPF", "CNH", "PROOF_OF_INCOME", "PROOF_OF_ADDRESS", "SELFIE", "BANK_STATEMENT"}},
				"media_url":     map[string]interface{}{"type": "string", "description": "URL do arquivo de mídia"},
				"media_type":    map[string]interface{}{"type": "string", "description": "MIME type do arquivo"},
			}, "phone", "document_type"),
		},
		{
			Name:        "run_credit_analysis",
			Description: "Executa análise de crédito completa (score, fraude, capacidade de pagamento). Use após coleta de documentos.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone":          map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"application_id": map[string]interface{}{"type": "string", "description": "ID da proposta"},
			}, "phone", "application_id"),
		},
		{
			Name:        "generate_contract",
			Description: "Gera o contrato de empréstimo para assinatura digital. Use após aprovação da análise de crédito. O link de assinatura será enviado automaticamente ao cliente.",
			InputSchema: objectSchema(map[string]interface{}{
				"application_id": map[string]interface{}{"type": "string", "description": "ID da proposta aprovada"},
			}, "application_id"),
		},
		{
			Name:        "get_application_status",
			Description: "Consulta o status atual de uma proposta de empréstimo.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone": map[string]interface{}{"type": "string", "description": "Telefone do lead"},
			}, "phone"),
		},
		{
			Name:        "update_lead_stage",
			Description: "Atualiza o estágio do lead no funil de originação.",
			InputSchema: objectSchema(map[string]interface{}{
				"phone": map[string]interface{}{"type": "string", "description": "Telefone do lead"},
				"stage": map[string]interface{}{"type": "string", "enum": []string{"NEW", "QUALIFYING", "SIMULATING", "DOCUMENTS_PENDING", "ANALYZING", "APPROVED", "DENIED", "CONTRACT_SENT", "CONTRACT_SIGNED", "DISBURSED", "COMPLETED", "CANCELLED"}},
			}, "phone", "stage"),
		},
	}
}

// Execute dispatches a tool call by name. Unknown names and handler errors
// come back as error results, never as Go errors, so the agent loop keeps
// going.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input json.RawMessage) ToolResult {
	result, err := r.dispatch(ctx, name, input)
	if err != nil {
		logrus.WithError(err).WithField("tool", name).Error("Tool execution error")
		return ToolResult{
			Content: fmt.Sprintf("Erro ao executar %s: %v", name, err),
			IsError: true,
		}
	}
	return result
}

func (r *ToolRegistry) dispatch(ctx context.Context, name string, input json.RawMessage) (ToolResult, error) {
	switch name {
	case "get_lead":
		return r.getLead(input)
	case "record_consent":
		return r.recordConsent(input)
	case "update_lead":
		return r.updateLead(input)
	case "simulate_loan":
		return r.simulateLoan(input)
	case "create_application":
		return r.createApplication(input)
	case "check_documents":
		return r.checkDocuments(input)
	case "register_document":
		return r.registerDocument(input)
	case "run_credit_analysis":
		return r.runCreditAnalysis(ctx, input)
	case "generate_contract":
		return r.generateContract(ctx, input)
	case "get_application_status":
		return r.getApplicationStatus(input)
	case "update_lead_stage":
		return r.updateLeadStage(input)
	default:
		return ToolResult{Content: fmt.Sprintf("Tool %q not found", name), IsError: true}, nil
	}
}

func (r *ToolRegistry) getLead(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	var lead models.Lead
	err := r.db.Preload("Documents").
		Preload("Applications", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(1)
		}).
		Where("phone = ?", utils.NormalizePhone(args.Phone)).
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonResult(map[string]interface{}{
			"found":   false,
			"message": "Lead não encontrado. É um novo cliente.",
		})
	}
	if err != nil {
		return ToolResult{}, err
	}

	payload := map[string]interface{}{
		"found":           true,
		"id":              lead.ID,
		"name":            lead.Name,
		"email":           lead.Email,
		"monthly_income":  lead.MonthlyIncome,
		"employment_type": lead.EmploymentType,
		"stage":           lead.Stage,
		"consent_given":   lead.HasConsent(),
		"documents_count": len(lead.Documents),
	}
	if lead.CPF != "" {
		payload["cpf"] = lead.MaskedCPF()
	}

	if len(lead.Applications) > 0 {
		app := lead.Applications[0]
		payload["has_active_application"] = app.Active()
		payload["last_application"] = map[string]interface{}{
			"id":     app.ID,
			"status": app.Status,
			"amount": app.RequestedAmount,
		}
	} else {
		payload["has_active_application"] = false
	}

	return jsonResult(payload)
}

func (r *ToolRegistry) recordConsent(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone   string `json:"phone"`
		Granted bool   `json:"granted"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	phone := utils.NormalizePhone(args.Phone)
	lead, err := r.upsertLead(phone)
	if err != nil {
		return ToolResult{}, err
	}

	if !args.Granted {
		return jsonResult(map[string]interface{}{
			"success": true,
			"granted": false,
			"message": "Recusa registrada. Sem consentimento não é possível coletar dados pessoais.",
		})
	}

	now := time.Now()
	if err := r.db.Model(lead).Update("consent_given_at", now).Error; err != nil {
		return ToolResult{}, err
	}

	logrus.WithField("phone", phone).Info("LGPD consent recorded")
	return jsonResult(map[string]interface{}{
		"success": true,
		"granted": true,
		"message": "Consentimento LGPD registrado.",
	})
}

type updateLeadArgs struct {
	Phone          string  `json:"phone"`
	Name           string  `json:"name"`
	CPF            string  `json:"cpf"`
	Email          string  `json:"email"`
	BirthDate      string  `json:"birth_date"`
	MonthlyIncome  float64 `json:"monthly_income"`
	EmployerName   string  `json:"employer_name"`
	EmploymentType string  `json:"employment_type"`
}

// updateLead is all or nothing: every provided field is validated first and
// all problems are reported together, so a bad CPF never half-applies an
// update.
func (r *ToolRegistry) updateLead(input json.RawMessage) (ToolResult, error) {
	var args updateLeadArgs
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	phone := utils.NormalizePhone(args.Phone)
	lead, err := r.upsertLead(phone)
	if err != nil {
		return ToolResult{}, err
	}

	updates := map[string]interface{}{}
	var problems []string

	if args.Name != "" {
		updates["name"] = utils.SanitizeInput(args.Name, 255)
	}
	if args.EmployerName != "" {
		updates["employer_name"] = utils.SanitizeInput(args.EmployerName, 255)
	}
	if args.Email != "" {
		updates["email"] = args.Email
	}
	if args.EmploymentType != "" {
		updates["employment_type"] = args.EmploymentType
	}

	sensitive := args.CPF != "" || args.BirthDate != "" || args.MonthlyIncome != 0
	if sensitive && !lead.HasConsent() {
		problems = append(problems, "Consentimento LGPD não registrado. Use record_consent antes de coletar dados sensíveis.")
	}

	if args.CPF != "" {
		cpf := utils.OnlyDigits(args.CPF)
		if !utils.ValidateCPF(cpf) {
			problems = append(problems, "CPF inválido (dígitos verificadores não conferem).")
		} else {
			var count int64
			if err := r.db.Model(&models.Lead{}).
				Where("cpf = ? AND id <> ?", cpf, lead.ID).
				Count(&count).Error; err != nil {
				return ToolResult{}, err
			}
			if count > 0 {
				problems = append(problems, "CPF já cadastrado para outro cliente.")
			} else {
				updates["cpf"] = cpf
			}
		}
	}

	if args.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", args.BirthDate)
		if err != nil {
			problems = append(problems, "Data de nascimento inválida, use o formato YYYY-MM-DD.")
		} else if age(birthDate) < 18 {
			problems = append(problems, "Cliente precisa ter pelo menos 18 anos.")
		} else {
			updates["birth_date"] = birthDate
		}
	}

	if args.MonthlyIncome != 0 {
		if args.MonthlyIncome < 0 || args.MonthlyIncome > 1000000 {
			problems = append(problems, "Renda mensal fora dos limites aceitos.")
		} else {
			updates["monthly_income"] = args.MonthlyIncome
		}
	}

	if len(problems) > 0 {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{
				"success": false,
				"errors":  problems,
			}),
			IsError: true,
		}, nil
	}

	if len(updates) == 0 {
		return jsonResult(map[string]interface{}{
			"success": true,
			"lead_id": lead.ID,
			"message": "Nenhum dado para atualizar.",
		})
	}

	if err := r.db.Model(lead).Updates(updates).Error; err != nil {
		return ToolResult{}, err
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}

	return jsonResult(map[string]interface{}{
		"success": true,
		"lead_id": lead.ID,
		"message": "Dados atualizados: " + strings.Join(fields, ", "),
	})
}

func (r *ToolRegistry) simulateLoan(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Amount        float64 `json:"amount"`
		Installments  float64 `json:"installments"`
		MonthlyIncome float64 `json:"monthly_income"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	sim := r.engine.Simulate(args.Amount, int(args.Installments), args.MonthlyIncome)

	return jsonResult(map[string]interface{}{
		"amount":          sim.Amount,
		"installments":    sim.Installments,
		"interest_rate":   sim.InterestRate,
		"monthly_payment": sim.MonthlyPayment,
		"total_amount":    sim.TotalAmount,
		"total_interest":  sim.TotalInterest,
		"iof":             sim.IOF,
		"cet":             sim.CET,
		"formatted": map[string]string{
			"amount":          formatBRL(sim.Amount),
			"monthly_payment": formatBRL(sim.MonthlyPayment),
			"total_amount":    formatBRL(sim.TotalAmount),
			"total_interest":  formatBRL(sim.TotalInterest),
			"interest_rate":   fmt.Sprintf("%.2f%% a.m.", sim.InterestRate),
			"cet":             fmt.Sprintf("%.2f%% a.a.", sim.CET),
		},
	})
}

func (r *ToolRegistry) createApplication(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone        string  `json:"phone"`
		Amount       float64 `json:"amount"`
		Installments float64 `json:"installments"`
		Purpose      string  `json:"purpose"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	var lead models.Lead
	err := r.db.Where("phone = ?", utils.NormalizePhone(args.Phone)).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{"success": false, "error": "Lead não encontrado. Colete os dados primeiro."}),
			IsError: true,
		}, nil
	}
	if err != nil {
		return ToolResult{}, err
	}

	if lead.Name == "" || lead.CPF == "" {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{
				"success": false,
				"error":   "Cadastro incompleto. Colete nome e CPF (com consentimento LGPD) antes de criar a proposta.",
			}),
			IsError: true,
		}, nil
	}

	// One active application per lead
	var activeCount int64
	if err := r.db.Model(&models.Application{}).
		Where("lead_id = ? AND status IN ?", lead.ID, models.ActiveApplicationStatuses).
		Count(&activeCount).Error; err != nil {
		return ToolResult{}, err
	}
	if activeCount > 0 {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{
				"success": false,
				"error":   "Cliente já possui uma proposta em andamento. Consulte o status antes de criar outra.",
			}),
			IsError: true,
		}, nil
	}

	purpose := models.LoanPurpose(args.Purpose)
	if purpose == "" {
		purpose = models.LoanPurposeOther
	}

	sim := r.engine.Simulate(args.Amount, int(args.Installments), lead.MonthlyIncome)

	application := models.Application{
		LeadID:          lead.ID,
		RequestedAmount: sim.Amount,
		Installments:    sim.Installments,
		InterestRate:    sim.InterestRate,
		MonthlyPayment:  sim.MonthlyPayment,
		TotalAmount:     sim.TotalAmount,
		Purpose:         purpose,
		Status:          models.ApplicationStatusSimulated,
	}

	err = database.WithTransaction(r.db, func(tx *gorm.DB) error {
		if err := tx.Create(&application).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lead{}).
			Where("id = ?", lead.ID).
			Update("stage", models.LeadStageDocumentsPending).Error
	})
	if err != nil {
		return ToolResult{}, err
	}

	return jsonResult(map[string]interface{}{
		"success":        true,
		"application_id": application.ID,
		"status":         application.Status,
		"message":        "Proposta criada. Próximo passo: coleta de documentos.",
	})
}

func (r *ToolRegistry) checkDocuments(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	checklist, err := r.documents.Checklist(utils.NormalizePhone(args.Phone))
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(checklist)
}

func (r *ToolRegistry) registerDocument(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone        string `json:"phone"`
		DocumentType string `json:"document_type"`
		MediaURL     string `json:"media_url"`
		MediaType    string `json:"media_type"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	result, err := r.documents.Register(
		utils.NormalizePhone(args.Phone),
		models.DocumentType(args.DocumentType),
		args.MediaURL,
		args.MediaType,
	)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(result)
}

func (r *ToolRegistry) runCreditAnalysis(ctx context.Context, input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone         string `json:"phone"`
		ApplicationID string `json:"application_id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	applicationID, err := uuid.Parse(args.ApplicationID)
	if err != nil {
		return ToolResult{Content: mustJSON(map[string]interface{}{"success": false, "error": "ID de proposta inválido."}), IsError: true}, nil
	}

	result, err := r.credit.Analyze(ctx, utils.NormalizePhone(args.Phone), applicationID)
	if errors.Is(err, ErrAlreadyAnalyzed) {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{
				"success": false,
				"error":   "Proposta já foi analisada. A decisão registrada permanece válida.",
			}),
			IsError: true,
		}, nil
	}
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(result)
}

func (r *ToolRegistry) generateContract(ctx context.Context, input json.RawMessage) (ToolResult, error) {
	var args struct {
		ApplicationID string `json:"application_id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	applicationID, err := uuid.Parse(args.ApplicationID)
	if err != nil {
		return ToolResult{Content: mustJSON(map[string]interface{}{"success": false, "error": "ID de proposta inválido."}), IsError: true}, nil
	}

	result, err := r.contracts.Generate(ctx, applicationID)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(result)
}

func (r *ToolRegistry) getApplicationStatus(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	var lead models.Lead
	err := r.db.Preload("Applications", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Limit(1).Preload("CreditAnalysis").Preload("Contract")
	}).Where("phone = ?", utils.NormalizePhone(args.Phone)).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && len(lead.Applications) == 0) {
		return jsonResult(map[string]interface{}{
			"has_application": false,
			"message":         "Nenhuma proposta encontrada.",
		})
	}
	if err != nil {
		return ToolResult{}, err
	}

	app := lead.Applications[0]
	payload := map[string]interface{}{
		"has_application": true,
		"application_id":  app.ID,
		"status":          app.Status,
		"amount":          app.RequestedAmount,
		"installments":    app.Installments,
		"monthly_payment": app.MonthlyPayment,
	}
	if app.ApprovedAmount != nil {
		payload["approved_amount"] = *app.ApprovedAmount
	}
	if app.CreditAnalysis != nil {
		payload["credit_decision"] = app.CreditAnalysis.Decision
	}
	if app.Contract != nil {
		payload["contract_status"] = app.Contract.Status
		payload["contract_number"] = app.Contract.ContractNumber
	}

	return jsonResult(payload)
}

func (r *ToolRegistry) updateLeadStage(input json.RawMessage) (ToolResult, error) {
	var args struct {
		Phone string `json:"phone"`
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{}, err
	}

	stage := models.LeadStage(args.Stage)
	if !stage.Valid() {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{"success": false, "error": fmt.Sprintf("Estágio inválido: %s", args.Stage)}),
			IsError: true,
		}, nil
	}

	result := r.db.Model(&models.Lead{}).
		Where("phone = ?", utils.NormalizePhone(args.Phone)).
		Update("stage", stage)
	if result.Error != nil {
		return ToolResult{}, result.Error
	}
	if result.RowsAffected == 0 {
		return ToolResult{
			Content: mustJSON(map[string]interface{}{"success": false, "error": "Lead não encontrado."}),
			IsError: true,
		}, nil
	}

	return jsonResult(map[string]interface{}{"success": true, "stage": stage})
}

func (r *ToolRegistry) upsertLead(phone string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.Where("phone = ?", phone).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lead = models.Lead{Phone: phone, Stage: models.LeadStageNew}
		if err := r.db.Create(&lead).Error; err != nil {
			return nil, err
		}
		return &lead, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func age(birthDate time.Time) int {
	now := time.Now()
	years := now.Year() - birthDate.Year()
	if now.YearDay() < birthDate.YearDay() {
		years--
	}
	return years
}

func formatBRL(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func jsonResult(v interface{}) (ToolResult, error) {
	return ToolResult{Content: mustJSON(v)}, nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
