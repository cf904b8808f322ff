// internal/services/conversation_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/models"
	"github.com/zenwallet/loan-origination/internal/providers"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendText(ctx context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) SendMedia(ctx context.Context, to, mediaURL, caption, mediaType string) error {
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newConversationService(t *testing.T, db *gorm.DB, client providers.ReasoningClient) (*ConversationService, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	agent := NewLoanAgent(client, newTestRegistry(t, db))
	service := NewConversationService(db, agent, sender)
	service.chunkDelay = 0
	return service, sender
}

func TestHandlePersistsAndReplies(t *testing.T) {
	db := newTestDB(t)
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{
			Content:    []providers.ContentBlock{providers.TextBlock("Oi Maria! Como posso ajudar?")},
			StopReason: "end_turn",
		},
	}}
	service, sender := newConversationService(t, db, client)

	service.Handle(context.Background(), InboundMessage{
		Phone:         "5511987654321",
		PushName:      "Maria",
		Text:          "oi",
		ExternalMsgID: "wamid-1",
	})

	assert.Equal(t, []string{"Oi Maria! Como posso ajudar?"}, sender.messages())

	var lead models.Lead
	require.NoError(t, db.First(&lead, "phone = ?", "5511987654321").Error)
	assert.Equal(t, "Maria", lead.Name)

	var conversation models.Conversation
	require.NoError(t, db.First(&conversation, "lead_id = ?", lead.ID).Error)
	assert.True(t, conversation.Active)

	var messages []models.Message
	require.NoError(t, db.Where("conversation_id = ?", conversation.ID).Order("created_at").Find(&messages).Error)
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "wamid-1", messages[0].ExternalMsgID)
	assert.Equal(t, models.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, "Oi Maria! Como posso ajudar?", messages[1].Content)
}

func TestHandlePrependsContextDigest(t *testing.T) {
	db := newTestDB(t)
	createTestLead(t, db, "5511987654321")
	client := &scriptedClient{}
	service, _ := newConversationService(t, db, client)

	service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "quanto falta?"})

	require.Len(t, client.requests, 1)
	msgs := client.requests[0].Messages
	userText := msgs[len(msgs)-1].Content[0].Text
	assert.True(t, strings.HasPrefix(userText, "[Contexto do cliente]\n"))
	assert.Contains(t, userText, "Nome: Maria Silva")
	assert.Contains(t, userText, "Consentimento LGPD: SIM")
	assert.Contains(t, userText, "Tem proposta ativa: NÃO")
	assert.Contains(t, userText, "Documentos pendentes:")
	assert.Contains(t, userText, "quanto falta?")
}

func TestHandleMediaMessage(t *testing.T) {
	db := newTestDB(t)
	client := &scriptedClient{}
	service, _ := newConversationService(t, db, client)

	service.Handle(context.Background(), InboundMessage{
		Phone:     "5511987654321",
		MediaURL:  "https://media.example/rg.jpg",
		MediaType: "image/jpeg",
	})

	msgs := client.requests[0].Messages
	userText := msgs[len(msgs)-1].Content[0].Text
	assert.Contains(t, userText, "[Cliente enviou um arquivo: tipo=image/jpeg url=https://media.example/rg.jpg]")

	var message models.Message
	require.NoError(t, db.First(&message, "role = ?", models.MessageRoleUser).Error)
	assert.Equal(t, "https://media.example/rg.jpg", message.MediaURL)
}

func TestHandleSendsApologyOnFailure(t *testing.T) {
	db := newTestDB(t)
	client := &scriptedClient{err: errors.New("upstream down")}
	service, sender := newConversationService(t, db, client)

	service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "oi"})

	assert.Equal(t, []string{apologyReply}, sender.messages())

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("role = ?", models.MessageRoleAssistant).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHandleCarriesHistoryIntoNextTurn(t *testing.T) {
	db := newTestDB(t)
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{Content: []providers.ContentBlock{providers.TextBlock("Olá! Sou a Zen.")}, StopReason: "end_turn"},
		{Content: []providers.ContentBlock{providers.TextBlock("Claro, vamos simular.")}, StopReason: "end_turn"},
	}}
	service, _ := newConversationService(t, db, client)

	service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "oi"})
	service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "quero um empréstimo"})

	require.Len(t, client.requests, 2)
	second := client.requests[1].Messages
	// Two history turns plus the new user message
	require.Len(t, second, 3)
	assert.Equal(t, providers.RoleUser, second[0].Role)
	assert.Equal(t, providers.RoleAssistant, second[1].Role)
	assert.Equal(t, "Olá! Sou a Zen.", second[1].Content[0].Text)
}

// gatedClient blocks its first completion until released, so tests can prove
// messages from the same phone are processed in arrival order.
type gatedClient struct {
	mu        sync.Mutex
	calls     int
	firstGate chan struct{}
}

func (c *gatedClient) CreateCompletion(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if n == 1 {
		<-c.firstGate
	}
	return &providers.CompletionResponse{
		Content:    []providers.ContentBlock{providers.TextBlock(fmt.Sprintf("reply-%d", n))},
		StopReason: "end_turn",
	}, nil
}

func TestHandleSerializesPerPhone(t *testing.T) {
	db := newTestDB(t)
	client := &gatedClient{firstGate: make(chan struct{})}
	service, sender := newConversationService(t, db, client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "primeira"})
	}()
	time.Sleep(50 * time.Millisecond)
	go func() {
		defer wg.Done()
		service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "segunda"})
	}()
	time.Sleep(50 * time.Millisecond)

	// Second message must still be parked behind the first
	assert.Empty(t, sender.messages())

	close(client.firstGate)
	wg.Wait()

	assert.Equal(t, []string{"reply-1", "reply-2"}, sender.messages())
}

func TestHandleDifferentPhonesRunIndependently(t *testing.T) {
	db := newTestDB(t)
	client := &gatedClient{firstGate: make(chan struct{})}
	service, sender := newConversationService(t, db, client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		service.Handle(context.Background(), InboundMessage{Phone: "5511987654321", Text: "primeira"})
	}()
	time.Sleep(50 * time.Millisecond)
	go func() {
		defer wg.Done()
		service.Handle(context.Background(), InboundMessage{Phone: "5511900001111", Text: "outra pessoa"})
	}()

	// The second phone is not blocked by the first phone's gate
	require.Eventually(t, func() bool {
		return len(sender.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "reply-2", sender.messages()[0])

	close(client.firstGate)
	wg.Wait()
}

func TestSplitMessageShortPassthrough(t *testing.T) {
	chunks := splitMessage("oi", 4000)
	assert.Equal(t, []string{"oi"}, chunks)
}

func TestSplitMessagePrefersParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 60)
	chunks := splitMessage(para1+"\n\n"+para2, 100)
	assert.Equal(t, []string{para1, para2}, chunks)
}

func TestSplitMessageFallsBackToLineBreaks(t *testing.T) {
	line1 := strings.Repeat("a", 70)
	line2 := strings.Repeat("b", 70)
	chunks := splitMessage(line1+"\n"+line2, 100)
	assert.Equal(t, []string{line1, line2}, chunks)
}

func TestSplitMessageHardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := splitMessage(text, 100)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessageIgnoresEarlySeparators(t *testing.T) {
	// The only break points sit below 30% of the limit, so the split falls
	// through to a hard cut instead of producing a sliver chunk.
	text := "ab\n\ncd " + strings.Repeat("x", 200)
	chunks := splitMessage(text, 100)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Greater(t, len(chunks[0]), 30)
}

func TestSplitMessageNeverBreaksUTF8(t *testing.T) {
	text := strings.Repeat("ã", 150) // 2 bytes each
	chunks := splitMessage(text, 101) // odd limit lands mid-rune
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk, "ã"))
		assert.LessOrEqual(t, len(chunk), 101)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}
