// internal/providers/clicksign.go
package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// SignatureProvider sends contracts out for digital signature.
type SignatureProvider interface {
	CreateAndSendContract(ctx context.Context, params ContractSignatureRequest) (*ContractSignatureResult, error)
	CancelDocument(ctx context.Context, documentKey string) error
}

type ContractSignatureRequest struct {
	ContractContent string
	FileName        string
	SignerName      string
	SignerEmail     string
	SignerCPF       string
	SignerPhone     string
	DeadlineDays    int
}

type ContractSignatureResult struct {
	DocumentKey         string
	SignerKey           string
	SignatureRequestKey string
	SigningURL          string
}

// ClicksignWebhookPayload is the body Clicksign posts on document events.
// Event names: upload, add_signer, sign, cancel, auto_close, deadline.
type ClicksignWebhookPayload struct {
	Event struct {
		Name string `json:"name"`
	} `json:"event"`
	Document struct {
		Key    string `json:"key"`
		Path   string `json:"path"`
		Status string `json:"status"`
	} `json:"document"`
	Account struct {
		Key string `json:"key"`
	} `json:"account"`
}

// ParseClicksignWebhook validates the minimal shape of a Clicksign event.
func ParseClicksignWebhook(body []byte) (*ClicksignWebhookPayload, error) {
	var payload ClicksignWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid clicksign payload: %w", err)
	}
	if payload.Event.Name == "" || payload.Document.Key == "" {
		return nil, fmt.Errorf("clicksign payload missing event name or document key")
	}
	return &payload, nil
}

// ClicksignClient integrates with the Clicksign digital signature API.
// Auth is an access_token query parameter.
type ClicksignClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewClicksignClient(cfg *config.ClicksignConfig) *ClicksignClient {
	return &ClicksignClient{
		baseURL:     cfg.APIURL,
		accessToken: cfg.APIKey,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type clicksignDocument struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Status string `json:"status"`
}

type clicksignSigner struct {
	Key string `json:"key"`
}

type clicksignList struct {
	Key                 string `json:"key"`
	RequestSignatureKey string `json:"request_signature_key"`
}

// CreateAndSendContract runs the full flow: upload the document, add the
// signer, link them, and push a WhatsApp signature notification.
func (c *ClicksignClient) CreateAndSendContract(ctx context.Context, params ContractSignatureRequest) (*ContractSignatureResult, error) {
	deadlineDays := params.DeadlineDays
	if deadlineDays <= 0 {
		deadlineDays = 7
	}

	document, err := c.createDocument(ctx, params.FileName, params.ContractContent, deadlineDays)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	logrus.WithField("document_key", document.Key).Info("Clicksign document created")

	signer, err := c.addSigner(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to add signer: %w", err)
	}
	logrus.WithField("signer_key", signer.Key).Info("Clicksign signer added")

	list, err := c.createSignatureList(ctx, document.Key, signer.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signature list: %w", err)
	}
	logrus.WithField("list_key", list.Key).Info("Clicksign signature list created")

	if err := c.notifyByWhatsApp(ctx, list.RequestSignatureKey); err != nil {
		return nil, fmt.Errorf("failed to send signature notification: %w", err)
	}
	logrus.WithField("phone", params.SignerPhone).Info("Clicksign WhatsApp notification sent")

	return &ContractSignatureResult{
		DocumentKey:         document.Key,
		SignerKey:           signer.Key,
		SignatureRequestKey: list.RequestSignatureKey,
		SigningURL:          strings.Replace(c.baseURL, "/api/v1", "", 1) + "/sign/" + list.RequestSignatureKey,
	}, nil
}

func (c *ClicksignClient) createDocument(ctx context.Context, fileName, htmlContent string, deadlineDays int) (*clicksignDocument, error) {
	deadline := time.Now().AddDate(0, 0, deadlineDays)
	contentBase64 := base64.StdEncoding.EncodeToString([]byte(htmlContent))

	var result struct {
		Document clicksignDocument `json:"document"`
	}
	err := c.request(ctx, "POST", "/documents", map[string]interface{}{
		"document": map[string]interface{}{
			"path":                "/" + fileName,
			"content_base64":      "data:text/html;base64," + contentBase64,
			"deadline_at":         deadline.Format(time.RFC3339),
			"auto_close":          true,
			"locale":              "pt-BR",
			"sequence_enabled":    false,
			"remind_interval":     3,
			"block_after_refusal": true,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Document, nil
}

func (c *ClicksignClient) addSigner(ctx context.Context, params ContractSignatureRequest) (*clicksignSigner, error) {
	var result struct {
		Signer clicksignSigner `json:"signer"`
	}
	err := c.request(ctx, "POST", "/signers", map[string]interface{}{
		"signer": map[string]interface{}{
			"name":                      params.SignerName,
			"email":                     params.SignerEmail,
			"phone_number":              "+" + utils.NormalizePhone(params.SignerPhone),
			"auths":                     []string{"whatsapp"},
			"delivery":                  "whatsapp",
			"documentation":             params.SignerCPF,
			"has_documentation":         true,
			"selfie_enabled":            false,
			"handwritten_enabled":       false,
			"official_document_enabled": false,
			"liveness_enabled":          false,
			"facial_biometrics_enabled": false,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Signer, nil
}

func (c *ClicksignClient) createSignatureList(ctx context.Context, documentKey, signerKey string) (*clicksignList, error) {
	var result struct {
		List clicksignList `json:"list"`
	}
	err := c.request(ctx, "POST", "/lists", map[string]interface{}{
		"list": map[string]interface{}{
			"document_key": documentKey,
			"signer_key":   signerKey,
			"sign_as":      "sign",
			"refusable":    true,
			"message":      "Por favor, assine o contrato de empréstimo da ZenWallet.",
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.List, nil
}

func (c *ClicksignClient) notifyByWhatsApp(ctx context.Context, requestSignatureKey string) error {
	return c.request(ctx, "POST", "/notifications", map[string]interface{}{
		"request_signature_key": requestSignatureKey,
		"message":               "Olá! Seu contrato de empréstimo da ZenWallet está pronto para assinatura. Clique no link para assinar digitalmente.",
		"url":                   strings.Replace(c.baseURL, "/api/v1", "", 1),
	}, nil)
}

func (c *ClicksignClient) CancelDocument(ctx context.Context, documentKey string) error {
	return c.request(ctx, "PATCH", "/documents/"+documentKey+"/cancel", nil, nil)
}

func (c *ClicksignClient) request(ctx context.Context, method, path string, body, out interface{}) error {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	url := c.baseURL + path + separator + "access_token=" + c.accessToken

	var reader io.Reader
	if body != nil && method != "GET" {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clicksign request failed: %w", err)
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
		}).Error("Clicksign API error")
		return fmt.Errorf("clicksign API error %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
