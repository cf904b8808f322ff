// internal/providers/whatsapp.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// MessageSender dispatches outbound messages to a customer channel.
type MessageSender interface {
	SendText(ctx context.Context, to, text string) error
	SendMedia(ctx context.Context, to, mediaURL, caption, mediaType string) error
}

// WhatsAppClient talks to an Evolution API instance.
type WhatsAppClient struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

func NewWhatsAppClient(cfg *config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		instance: cfg.InstanceName,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *WhatsAppClient) SendText(ctx context.Context, to, text string) error {
	phone := utils.NormalizePhone(to)
	logrus.WithField("to", phone).Info("Sending WhatsApp text message")

	return c.request(ctx, "message/sendText", map[string]interface{}{
		"number": phone,
		"text":   text,
	})
}

func (c *WhatsAppClient) SendMedia(ctx context.Context, to, mediaURL, caption, mediaType string) error {
	phone := utils.NormalizePhone(to)
	logrus.WithFields(logrus.Fields{"to": phone, "media_type": mediaType}).Info("Sending WhatsApp media")

	return c.request(ctx, "message/sendMedia", map[string]interface{}{
		"number":    phone,
		"mediatype": mediaType,
		"media":     mediaURL,
		"caption":   caption,
	})
}

func (c *WhatsAppClient) request(ctx context.Context, endpoint string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, endpoint, c.instance)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", endpoint).Error("WhatsApp API request failed")
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Error("WhatsApp API request failed")
		return fmt.Errorf("evolution API error %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
