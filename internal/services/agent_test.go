// internal/services/agent_test.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwallet/loan-origination/internal/providers"
)

type scriptedClient struct {
	responses []*providers.CompletionResponse
	requests  []providers.CompletionRequest
	err       error
}

func (c *scriptedClient) CreateCompletion(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &providers.CompletionResponse{
			Content:    []providers.ContentBlock{providers.TextBlock("ok")},
			StopReason: "end_turn",
		}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func toolUseBlock(id, name string, input map[string]interface{}) providers.ContentBlock {
	raw, _ := json.Marshal(input)
	return providers.ContentBlock{Type: providers.BlockToolUse, ID: id, Name: name, Input: raw}
}

func TestConverseDirectReply(t *testing.T) {
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{
			Content:    []providers.ContentBlock{providers.TextBlock("Oi! Como posso ajudar?")},
			StopReason: "end_turn",
		},
	}}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	reply, err := agent.Converse(context.Background(), nil, "oi")
	require.NoError(t, err)
	assert.Equal(t, "Oi! Como posso ajudar?", reply.Text)
	assert.Empty(t, reply.ToolsUsed)

	require.Len(t, client.requests, 1)
	assert.NotEmpty(t, client.requests[0].System)
	assert.Len(t, client.requests[0].Tools, 11)
}

func TestConverseExecutesToolAndFeedsResultBack(t *testing.T) {
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{
			Content: []providers.ContentBlock{
				providers.TextBlock("Vou simular para você."),
				toolUseBlock("tu-1", "simulate_loan", map[string]interface{}{
					"amount":       10000,
					"installments": 12,
				}),
			},
			StopReason: "tool_use",
		},
		{
			Content:    []providers.ContentBlock{providers.TextBlock("Ficou em 12x de R$ 944,94.")},
			StopReason: "end_turn",
		},
	}}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	reply, err := agent.Converse(context.Background(), nil, "quero 10 mil em 12x")
	require.NoError(t, err)
	assert.Equal(t, "Vou simular para você.\nFicou em 12x de R$ 944,94.", reply.Text)
	assert.Equal(t, []string{"simulate_loan"}, reply.ToolsUsed)

	// Second request carries the assistant turn and the tool_result turn
	require.Len(t, client.requests, 2)
	second := client.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, providers.RoleAssistant, second[1].Role)
	assert.Equal(t, providers.RoleUser, second[2].Role)
	require.Len(t, second[2].Content, 1)
	assert.Equal(t, providers.BlockToolResult, second[2].Content[0].Type)
	assert.Equal(t, "tu-1", second[2].Content[0].ToolUseID)
	assert.False(t, second[2].Content[0].IsError)
}

func TestConverseToolErrorIsReportedNotFatal(t *testing.T) {
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{
			Content: []providers.ContentBlock{
				toolUseBlock("tu-1", "nonexistent_tool", map[string]interface{}{}),
			},
			StopReason: "tool_use",
		},
		{
			Content:    []providers.ContentBlock{providers.TextBlock("Tive um problema com isso.")},
			StopReason: "end_turn",
		},
	}}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	reply, err := agent.Converse(context.Background(), nil, "oi")
	require.NoError(t, err)
	assert.Equal(t, "Tive um problema com isso.", reply.Text)

	second := client.requests[1].Messages
	assert.True(t, second[len(second)-1].Content[0].IsError)
}

func TestConverseEmptyReplyFallback(t *testing.T) {
	client := &scriptedClient{responses: []*providers.CompletionResponse{
		{Content: nil, StopReason: "end_turn"},
	}}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	reply, err := agent.Converse(context.Background(), nil, "oi")
	require.NoError(t, err)
	assert.Equal(t, "Desculpe, não consegui processar. Pode repetir?", reply.Text)
}

func TestConverseIterationCap(t *testing.T) {
	// Model keeps asking for tools forever
	looping := &providers.CompletionResponse{
		Content: []providers.ContentBlock{
			toolUseBlock("tu-x", "get_lead", map[string]interface{}{"phone": "5511987654321"}),
		},
		StopReason: "tool_use",
	}
	responses := make([]*providers.CompletionResponse, 0, agentMaxIterations)
	for i := 0; i < agentMaxIterations; i++ {
		responses = append(responses, looping)
	}

	client := &scriptedClient{responses: responses}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	reply, err := agent.Converse(context.Background(), nil, "oi")
	require.NoError(t, err)
	assert.Equal(t, "Desculpe, tive um problema processando sua solicitação. Pode tentar novamente?", reply.Text)
	assert.Len(t, reply.ToolsUsed, agentMaxIterations)
	assert.Len(t, client.requests, agentMaxIterations)
}

func TestConverseClientErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: errors.New("upstream unavailable")}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	_, err := agent.Converse(context.Background(), nil, "oi")
	assert.Error(t, err)
}

func TestConverseKeepsHistoryOrder(t *testing.T) {
	client := &scriptedClient{}
	agent := NewLoanAgent(client, newTestRegistry(t, newTestDB(t)))

	history := []providers.ChatMessage{
		providers.UserMessage("oi"),
		providers.AssistantMessage("Olá! Sou a Zen."),
	}
	_, err := agent.Converse(context.Background(), history, "quero um empréstimo")
	require.NoError(t, err)

	msgs := client.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, providers.RoleUser, msgs[0].Role)
	assert.Equal(t, providers.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "quero um empréstimo", msgs[2].Content[0].Text)
}
