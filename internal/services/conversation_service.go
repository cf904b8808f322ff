// internal/services/conversation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
	"github.com/zenwallet/loan-origination/internal/utils"
)

const (
	// WhatsApp rejects messages above ~4096 chars; stay under with margin.
	maxMessageLength = 4000
	historyLimit     = 50
	// A crashed handler must not block the phone's chain forever.
	chainWaitTimeout = 2 * time.Minute

	apologyReply = "Desculpe, estou com um problema técnico. Pode tentar novamente em alguns instantes?"
)

// InboundMessage is a normalized message received from the messaging channel.
type InboundMessage struct {
	Phone         string
	PushName      string
	Text          string
	MediaURL      string
	MediaType     string
	ExternalMsgID string
}

type chainEntry struct {
	done chan struct{}
}

// ConversationService orchestrates one inbound message end to end: lead
// upsert, history load, agent run, reply persistence and delivery. Messages
// from the same phone are processed strictly in arrival order.
type ConversationService struct {
	db     *gorm.DB
	agent  *LoanAgent
	sender providers.MessageSender

	mu     sync.Mutex
	chains map[string]*chainEntry

	chunkDelay time.Duration
}

func NewConversationService(db *gorm.DB, agent *LoanAgent, sender providers.MessageSender) *ConversationService {
	return &ConversationService{
		db:         db,
		agent:      agent,
		sender:     sender,
		chains:     make(map[string]*chainEntry),
		chunkDelay: 500 * time.Millisecond,
	}
}

// Handle processes one inbound message. Errors are absorbed: the customer
// gets an apology text and the cause is logged, so the webhook never retries
// a poisoned message.
func (s *ConversationService) Handle(ctx context.Context, msg InboundMessage) {
	phone := utils.NormalizePhone(msg.Phone)
	if phone == "" {
		return
	}

	release := s.acquire(phone)
	defer release()

	if err := s.process(ctx, phone, msg); err != nil {
		logrus.WithError(err).WithField("phone", phone).Error("Conversation pipeline failed")
		if sendErr := s.sender.SendText(ctx, phone, apologyReply); sendErr != nil {
			logrus.WithError(sendErr).WithField("phone", phone).Error("Failed to send apology")
		}
	}
}

// acquire serializes processing per phone. Each caller parks behind the
// previous message's completion, bounded by chainWaitTimeout.
func (s *ConversationService) acquire(phone string) func() {
	entry := &chainEntry{done: make(chan struct{})}

	s.mu.Lock()
	prev := s.chains[phone]
	s.chains[phone] = entry
	s.mu.Unlock()

	if prev != nil {
		select {
		case <-prev.done:
		case <-time.After(chainWaitTimeout):
			logrus.WithField("phone", phone).Warn("Timed out waiting for previous message, proceeding")
		}
	}

	return func() {
		close(entry.done)
		s.mu.Lock()
		if s.chains[phone] == entry {
			delete(s.chains, phone)
		}
		s.mu.Unlock()
	}
}

func (s *ConversationService) process(ctx context.Context, phone string, msg InboundMessage) error {
	lead, err := s.upsertLead(phone, msg.PushName)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}

	conversation, err := s.activeConversation(lead.ID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	inbound := models.Message{
		ConversationID: conversation.ID,
		Role:           models.MessageRoleUser,
		Content:        utils.SanitizeInput(msg.Text, 10000),
		MediaURL:       msg.MediaURL,
		MediaType:      msg.MediaType,
		ExternalMsgID:  msg.ExternalMsgID,
	}
	if err := s.db.Create(&inbound).Error; err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}

	history, err := s.loadHistory(conversation.ID, inbound.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	userMessage := s.buildUserMessage(lead, msg)

	reply, err := s.agent.Converse(ctx, history, userMessage)
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	outbound := models.Message{
		ConversationID: conversation.ID,
		Role:           models.MessageRoleAssistant,
		Content:        reply.Text,
	}
	if err := s.db.Create(&outbound).Error; err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"phone":      phone,
		"tools_used": reply.ToolsUsed,
	}).Info("Agent reply ready")

	return s.deliver(ctx, phone, reply.Text)
}

func (s *ConversationService) deliver(ctx context.Context, phone, text string) error {
	chunks := splitMessage(text, maxMessageLength)
	for i, chunk := range chunks {
		if i > 0 && s.chunkDelay > 0 {
			select {
			case <-time.After(s.chunkDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := s.sender.SendText(ctx, phone, chunk); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (s *ConversationService) upsertLead(phone, pushName string) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.Where("phone = ?", phone).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lead = models.Lead{
			Phone: phone,
			Name:  utils.SanitizeInput(pushName, 255),
			Stage: models.LeadStageNew,
		}
		if err := s.db.Create(&lead).Error; err != nil {
			return nil, err
		}
		logrus.WithField("phone", phone).Info("New lead created")
		return &lead, nil
	}
	if err != nil {
		return nil, err
	}

	// Fill in the profile name once; never overwrite a collected name.
	if lead.Name == "" && pushName != "" {
		name := utils.SanitizeInput(pushName, 255)
		if err := s.db.Model(&lead).Update("name", name).Error; err != nil {
			return nil, err
		}
		lead.Name = name
	}
	return &lead, nil
}

func (s *ConversationService) activeConversation(leadID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.Where("lead_id = ? AND active = ?", leadID, true).
		Order("created_at DESC").
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conversation = models.Conversation{LeadID: leadID, Active: true}
		if err := s.db.Create(&conversation).Error; err != nil {
			return nil, err
		}
		return &conversation, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// loadHistory returns the last messages of the conversation as model turns,
// oldest first, excluding the message being processed and SYSTEM entries.
func (s *ConversationService) loadHistory(conversationID, excludeID uuid.UUID) ([]providers.ChatMessage, error) {
	var messages []models.Message
	err := s.db.Where("conversation_id = ? AND id <> ? AND role <> ?", conversationID, excludeID, models.MessageRoleSystem).
		Order("created_at DESC").
		Limit(historyLimit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	history := make([]providers.ChatMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		switch m.Role {
		case models.MessageRoleUser:
			history = append(history, providers.UserMessage(m.Content))
		case models.MessageRoleAssistant:
			history = append(history, providers.AssistantMessage(m.Content))
		}
	}
	return history, nil
}

// buildUserMessage prepends a context digest so the model does not need a
// tool round-trip for facts the backend already knows.
func (s *ConversationService) buildUserMessage(lead *models.Lead, msg InboundMessage) string {
	var b strings.Builder
	b.WriteString("[Contexto do cliente]\n")

	name := lead.Name
	if name == "" {
		name = "não informado"
	}
	fmt.Fprintf(&b, "Nome: %s\n", name)
	fmt.Fprintf(&b, "Estágio: %s\n", lead.Stage)
	fmt.Fprintf(&b, "Consentimento LGPD: %s\n", simNao(lead.HasConsent()))
	fmt.Fprintf(&b, "Tem proposta ativa: %s\n", simNao(s.hasActiveApplication(lead.ID)))

	if pending := s.pendingDocuments(lead.ID); len(pending) > 0 {
		fmt.Fprintf(&b, "Documentos pendentes: %s\n", strings.Join(pending, ", "))
	}

	b.WriteString("\n")
	if msg.Text != "" {
		b.WriteString(msg.Text)
	}
	if msg.MediaURL != "" {
		if msg.Text != "" {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[Cliente enviou um arquivo: tipo=%s url=%s]", msg.MediaType, msg.MediaURL)
	}
	return b.String()
}

func (s *ConversationService) hasActiveApplication(leadID uuid.UUID) bool {
	var count int64
	err := s.db.Model(&models.Application{}).
		Where("lead_id = ? AND status IN ?", leadID, models.ActiveApplicationStatuses).
		Count(&count).Error
	if err != nil {
		logrus.WithError(err).Warn("Failed to count active applications")
		return false
	}
	return count > 0
}

func (s *ConversationService) pendingDocuments(leadID uuid.UUID) []string {
	var docs []models.Document
	if err := s.db.Where("lead_id = ?", leadID).Find(&docs).Error; err != nil {
		logrus.WithError(err).Warn("Failed to load documents")
		return nil
	}

	sent := make(map[models.DocumentType]bool, len(docs))
	for _, d := range docs {
		sent[d.Type] = true
	}

	var pending []string
	for _, required := range models.RequiredDocuments {
		if !sent[required] {
			pending = append(pending, required.Label())
		}
	}
	return pending
}

func simNao(v bool) string {
	if v {
		return "SIM"
	}
	return "NÃO"
}

// splitMessage breaks text into chunks of at most limit bytes, preferring
// paragraph breaks, then line breaks, then spaces. A break point is only
// taken past 30% of the limit so chunks do not degenerate into slivers.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	floor := int(float64(limit) * 0.3)
	var chunks []string
	rest := text

	for len(rest) > limit {
		window := rest[:limit]
		cut := -1
		sepLen := 0
		for _, sep := range []string{"\n\n", "\n", " "} {
			if idx := strings.LastIndex(window, sep); idx >= floor {
				cut = idx
				sepLen = len(sep)
				break
			}
		}
		if cut == -1 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(rest[cut]) {
				cut--
			}
			sepLen = 0
		}

		chunk := strings.TrimSpace(rest[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimSpace(rest[cut+sepLen:])
	}

	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
