// internal/handlers/webhook.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/providers"
	"github.com/zenwallet/loan-origination/internal/services"
	"github.com/zenwallet/loan-origination/internal/utils"
)

// Dedup windows: provider events cover the signer/funder retry window,
// chat message IDs only need to absorb short redelivery bursts.
const (
	webhookDedupTTL = 10 * time.Minute
	messageDedupTTL = 5 * time.Minute
)

type WebhookHandler struct {
	cfg           *config.Config
	conversations *services.ConversationService
	contracts     *services.ContractService
	seen          *utils.TTLSet
	seenMessages  *utils.TTLSet
}

func NewWebhookHandler(cfg *config.Config, conversations *services.ConversationService, contracts *services.ContractService) *WebhookHandler {
	return &WebhookHandler{
		cfg:           cfg,
		conversations: conversations,
		contracts:     contracts,
		seen:          utils.NewTTLSet(webhookDedupTTL),
		seenMessages:  utils.NewTTLSet(messageDedupTTL),
	}
}

// evolutionWebhook is the Evolution API messages.upsert payload.
type evolutionWebhook struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			ImageMessage struct {
				URL      string `json:"url"`
				Caption  string `json:"caption"`
				Mimetype string `json:"mimetype"`
			} `json:"imageMessage"`
			DocumentMessage struct {
				URL      string `json:"url"`
				Caption  string `json:"caption"`
				Mimetype string `json:"mimetype"`
				FileName string `json:"fileName"`
			} `json:"documentMessage"`
			AudioMessage struct {
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
			} `json:"audioMessage"`
			ButtonsResponseMessage struct {
				SelectedDisplayText string `json:"selectedDisplayText"`
			} `json:"buttonsResponseMessage"`
			ListResponseMessage struct {
				Title string `json:"title"`
			} `json:"listResponseMessage"`
		} `json:"message"`
	} `json:"data"`
}

// HandleWhatsApp ingests inbound customer messages. The webhook is acked
// immediately and the conversation pipeline runs in the background, so a
// slow model call never makes the messaging provider retry.
func (h *WebhookHandler) HandleWhatsApp(c *gin.Context) {
	if h.cfg.WhatsApp.APIKey != "" && c.GetHeader("apikey") != h.cfg.WhatsApp.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	var payload evolutionWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Event != "messages.upsert" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	key := payload.Data.Key
	// Ignore our own messages and group chats
	if key.FromMe || strings.HasSuffix(key.RemoteJid, "@g.us") {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	phone := key.RemoteJid
	if at := strings.Index(phone, "@"); at >= 0 {
		phone = phone[:at]
	}
	if phone == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if key.ID != "" && h.seenMessages.CheckAndSet("wa:"+key.ID) {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	msg := services.InboundMessage{
		Phone:         phone,
		PushName:      payload.Data.PushName,
		ExternalMsgID: key.ID,
	}

	m := payload.Data.Message
	switch {
	case m.Conversation != "":
		msg.Text = m.Conversation
	case m.ExtendedTextMessage.Text != "":
		msg.Text = m.ExtendedTextMessage.Text
	case m.ImageMessage.URL != "":
		msg.Text = m.ImageMessage.Caption
		msg.MediaURL = m.ImageMessage.URL
		msg.MediaType = m.ImageMessage.Mimetype
	case m.DocumentMessage.URL != "":
		msg.Text = m.DocumentMessage.Caption
		msg.MediaURL = m.DocumentMessage.URL
		msg.MediaType = m.DocumentMessage.Mimetype
	case m.AudioMessage.URL != "":
		msg.MediaURL = m.AudioMessage.URL
		msg.MediaType = m.AudioMessage.Mimetype
	case m.ButtonsResponseMessage.SelectedDisplayText != "":
		msg.Text = m.ButtonsResponseMessage.SelectedDisplayText
	case m.ListResponseMessage.Title != "":
		msg.Text = m.ListResponseMessage.Title
	}

	if msg.Text == "" && msg.MediaURL == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	go h.conversations.Handle(context.Background(), msg)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// HandleClicksign processes signature events. Signature verification uses
// the raw body, before any JSON decoding.
func (h *WebhookHandler) HandleClicksign(c *gin.Context) {
	if !h.cfg.Clicksign.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clicksign webhooks disabled"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	if !utils.VerifyHMAC(body, c.GetHeader("Content-Hmac"), h.cfg.Clicksign.WebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	payload, err := providers.ParseClicksignWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dedupKey := fmt.Sprintf("clicksign:%s:%s", payload.Document.Key, payload.Event.Name)
	if h.seen.CheckAndSet(dedupKey) {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	logrus.WithFields(logrus.Fields{
		"event":        payload.Event.Name,
		"document_key": payload.Document.Key,
	}).Info("Clicksign event received")

	if err := h.contracts.HandleSignerEvent(c.Request.Context(), payload.Document.Key, payload.Event.Name); err != nil {
		logrus.WithError(err).Error("Failed to process clicksign event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// HandleQITech processes disbursement status events.
func (h *WebhookHandler) HandleQITech(c *gin.Context) {
	if !h.cfg.QITech.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qitech webhooks disabled"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	if !utils.VerifyHMAC(body, c.GetHeader("X-QITECH-SIGNATURE"), h.cfg.QITech.WebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	payload, err := providers.ParseQITechWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dedupKey := fmt.Sprintf("qitech:%s:%s", payload.Key, payload.Status)
	if h.seen.CheckAndSet(dedupKey) {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	logrus.WithFields(logrus.Fields{
		"key":    payload.Key,
		"status": payload.Status,
	}).Info("QI Tech event received")

	if err := h.contracts.HandleFunderEvent(payload.Key, payload.Status); err != nil {
		logrus.WithError(err).Error("Failed to process qitech event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
