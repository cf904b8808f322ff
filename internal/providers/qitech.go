// internal/providers/qitech.go
package providers

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// FundingProvider registers credit operations and triggers disbursement.
type FundingProvider interface {
	CreateDebtAndDisburse(ctx context.Context, params DisbursementRequest) (*DisbursementResult, error)
	GetDebtStatus(ctx context.Context, operationKey string) (string, error)
}

type DisbursementRequest struct {
	BorrowerName        string
	BorrowerCPF         string
	BorrowerPhone       string
	BorrowerEmail       string
	BorrowerBirthDate   string
	Amount              float64
	Installments        int
	InterestRateMonthly float64
	MonthlyPayment      float64
	TotalAmount         float64
	FirstDueDate        string
	PixKey              string
	PixKeyType          string // cpf, phone, email, random
	ContractNumber      string
}

type DisbursementResult struct {
	Success      bool
	OperationKey string
	Status       string
	Message      string
}

// QITechWebhookPayload is the body QI Tech posts on operation status
// changes. Status lifecycle: waiting_signature, signature_received,
// disbursing, disbursed, paid.
type QITechWebhookPayload struct {
	WebhookType   string                 `json:"webhook_type"`
	Key           string                 `json:"key"`
	Status        string                 `json:"status"`
	EventDatetime string                 `json:"event_datetime"`
	Data          map[string]interface{} `json:"data"`
}

func ParseQITechWebhook(body []byte) (*QITechWebhookPayload, error) {
	var payload QITechWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid qitech payload: %w", err)
	}
	if payload.WebhookType == "" || payload.Key == "" {
		return nil, fmt.Errorf("qitech payload missing webhook_type or key")
	}
	return &payload, nil
}

// QITechProvider integrates with the QI Tech debt API. Every request is
// authenticated with two ES512 JWTs: the body is JWT-encoded as
// encoded_body, and the Authorization header carries a second JWT over the
// request metadata plus an MD5 hash of the encoded body.
type QITechProvider struct {
	baseURL    string
	clientKey  string
	privateKey *ecdsa.PrivateKey
	client     *http.Client
}

func NewQITechProvider(cfg *config.QITechConfig) (*QITechProvider, error) {
	p := &QITechProvider{
		baseURL:   cfg.APIURL,
		clientKey: cfg.ClientKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}

	if cfg.PrivateKey != "" {
		pemBytes, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("QITECH_PRIVATE_KEY is not valid base64: %w", err)
		}
		key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse QI Tech private key: %w", err)
		}
		p.privateKey = key
	}

	return p, nil
}

func (p *QITechProvider) CreateDebtAndDisburse(ctx context.Context, params DisbursementRequest) (*DisbursementResult, error) {
	payload := p.buildDebtPayload(params)

	var response struct {
		Data struct {
			DebtKey               string `json:"debt_key"`
			CreditOperationStatus string `json:"credit_operation_status"`
		} `json:"data"`
	}

	if err := p.signedRequest(ctx, "POST", "/debt", payload, &response); err != nil {
		logrus.WithError(err).WithField("borrower_cpf", maskCPF(params.BorrowerCPF)).Error("QI Tech debt creation failed")
		return &DisbursementResult{
			Success: false,
			Message: fmt.Sprintf("Erro ao criar operação: %v", err),
		}, err
	}

	logrus.WithFields(logrus.Fields{
		"operation_key": response.Data.DebtKey,
		"status":        response.Data.CreditOperationStatus,
		"borrower_cpf":  maskCPF(params.BorrowerCPF),
		"amount":        params.Amount,
	}).Info("QI Tech debt operation created")

	return &DisbursementResult{
		Success:      true,
		OperationKey: response.Data.DebtKey,
		Status:       response.Data.CreditOperationStatus,
		Message:      "Operação de crédito criada. Aguardando assinatura para desembolso.",
	}, nil
}

func (p *QITechProvider) GetDebtStatus(ctx context.Context, operationKey string) (string, error) {
	var response struct {
		Data struct {
			CreditOperationStatus string `json:"credit_operation_status"`
		} `json:"data"`
	}
	if err := p.signedRequest(ctx, "GET", "/debt/"+operationKey, nil, &response); err != nil {
		return "", err
	}
	return response.Data.CreditOperationStatus, nil
}

func (p *QITechProvider) CancelDebt(ctx context.Context, debtKey string) error {
	if err := p.signedRequest(ctx, "POST", "/debt/"+debtKey+"/cancel", map[string]interface{}{}, nil); err != nil {
		return err
	}
	logrus.WithField("debt_key", debtKey).Info("QI Tech debt cancelled")
	return nil
}

func (p *QITechProvider) HealthCheck(ctx context.Context) bool {
	var response struct {
		Ping string `json:"ping"`
	}
	if err := p.signedRequest(ctx, "GET", "/test/"+p.clientKey, nil, &response); err != nil {
		return false
	}
	return response.Ping == "pong"
}

func (p *QITechProvider) buildDebtPayload(params DisbursementRequest) map[string]interface{} {
	return map[string]interface{}{
		"borrower": map[string]interface{}{
			"person_type":                "natural",
			"name":                       params.BorrowerName,
			"individual_document_number": params.BorrowerCPF,
			"phone":                      parseQITechPhone(params.BorrowerPhone),
			"email":                      params.BorrowerEmail,
			"birth_date":                 params.BorrowerBirthDate,
			"nationality":                "brasileiro",
			"is_pep":                     false,
			"role_type":                  "issuer",
		},
		"financial": map[string]interface{}{
			"amount":                 params.Amount,
			"interest_type":          "pre_price_days",
			"credit_operation_type":  "ccb",
			"annual_interest_rate":   MonthlyToAnnualRate(params.InterestRateMonthly),
			"disbursement_date":      time.Now().Format("2006-01-02"),
			"interest_grace_period":  0,
			"principal_grace_period": 0,
			"number_of_installments": params.Installments,
			"fine_configuration": map[string]interface{}{
				"monthly_rate":       0.01,
				"interest_base":      "calendar_days",
				"contract_fine_rate": 0.02,
			},
		},
		"disbursement_bank_accounts": []map[string]interface{}{
			{
				"account_type":          "pix",
				"pix_key":               params.PixKey,
				"pix_key_type":          params.PixKeyType,
				"name":                  params.BorrowerName,
				"document_number":       params.BorrowerCPF,
				"percentage_receivable": 100,
			},
		},
		"external_contract_number": params.ContractNumber,
	}
}

func (p *QITechProvider) signedRequest(ctx context.Context, method, path string, body map[string]interface{}, out interface{}) error {
	if p.privateKey == nil {
		return fmt.Errorf("QITECH_PRIVATE_KEY not configured")
	}

	var encodedBody string
	if body != nil && method != "GET" {
		signed, err := p.signJWT(jwt.MapClaims(body))
		if err != nil {
			return fmt.Errorf("failed to sign request body: %w", err)
		}
		encodedBody = signed
	}

	authClaims := jwt.MapClaims{
		"sub":    p.clientKey,
		"method": strings.ToUpper(method),
		"uri":    path,
		"iat":    time.Now().Unix(),
	}
	if encodedBody != "" {
		sum := md5.Sum([]byte(encodedBody))
		authClaims["signature_hash"] = hex.EncodeToString(sum[:])
	}

	authJWT, err := p.signJWT(authClaims)
	if err != nil {
		return fmt.Errorf("failed to sign auth token: %w", err)
	}

	var reader io.Reader
	if encodedBody != "" {
		payload, err := json.Marshal(map[string]string{"encoded_body": encodedBody})
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("QIT %s:%s", p.clientKey, authJWT))
	req.Header.Set("API-CLIENT-KEY", p.clientKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("qitech request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
		}).Error("QI Tech API error")
		return fmt.Errorf("qitech API error %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (p *QITechProvider) signJWT(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES512, claims)
	return token.SignedString(p.privateKey)
}

// parseQITechPhone splits a phone into QI Tech's country/area/number shape.
func parseQITechPhone(phone string) map[string]string {
	digits := utils.OnlyDigits(phone)
	if strings.HasPrefix(digits, "55") && len(digits) >= 12 {
		return map[string]string{
			"country_code": "055",
			"area_code":    digits[2:4],
			"number":       digits[4:],
		}
	}
	if len(digits) < 2 {
		return map[string]string{"country_code": "055", "area_code": "", "number": digits}
	}
	return map[string]string{
		"country_code": "055",
		"area_code":    digits[:2],
		"number":       digits[2:],
	}
}

// MonthlyToAnnualRate compounds a monthly percent rate into the annual
// equivalent, rounded to two decimals.
func MonthlyToAnnualRate(monthlyRate float64) float64 {
	annual := (math.Pow(1+monthlyRate/100, 12) - 1) * 100
	return math.Round(annual*100) / 100
}
