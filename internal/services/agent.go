// internal/services/agent.go
package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/providers"
)

// agentMaxIterations bounds the tool-calling loop per inbound message.
const agentMaxIterations = 8

const systemPrompt = `Você é a Zen, assistente virtual da ZenWallet para empréstimo pessoal via WhatsApp.

## Sua personalidade
- Simpática, direta e profissional. Trate o cliente pelo primeiro nome quando souber.
- Mensagens curtas, adequadas ao WhatsApp. Evite blocos longos de texto.
- Sempre em português do Brasil. Use emojis com moderação.

## Produto
- Empréstimo pessoal de R$ 1.000 a R$ 100.000.
- De 3 a 48 parcelas mensais fixas.
- Juros a partir de 1,99% ao mês, definidos conforme o perfil.
- Dinheiro na conta via PIX após assinatura digital do contrato.

## Fluxo de atendimento
1. Cumprimente e entenda a necessidade do cliente.
2. Antes de coletar CPF, data de nascimento ou renda, explique que precisa do
   consentimento LGPD para tratar os dados e registre a resposta com record_consent.
   Se o cliente recusar, respeite e não colete dados sensíveis.
3. Colete nome, CPF, data de nascimento, renda mensal e tipo de emprego com update_lead.
4. Faça simulações com simulate_loan e apresente parcela, total e CET.
5. Quando o cliente aprovar a simulação, crie a proposta com create_application.
6. Peça os documentos necessários (use check_documents para saber o que falta).
7. Com os documentos completos, rode run_credit_analysis e comunique a decisão.
8. Se aprovado, gere o contrato com generate_contract. O link de assinatura chega
   automaticamente para o cliente.
9. Após a assinatura o dinheiro cai via PIX, normalmente em minutos.

## Regras
- NUNCA invente valores de simulação, use sempre simulate_loan.
- NUNCA prometa aprovação antes da análise de crédito.
- Se a análise for negada, informe com empatia e sem detalhar critérios internos.
- Se a análise for para revisão manual, explique que um especialista vai avaliar.
- Não responda assuntos fora de empréstimo pessoal; redirecione com educação.
- Em caso de dúvida sobre dados do cliente, consulte get_lead antes de perguntar de novo.`

const (
	fallbackEmptyReply    = "Desculpe, não consegui processar. Pode repetir?"
	fallbackMaxIterations = "Desculpe, tive um problema processando sua solicitação. Pode tentar novamente?"
)

// AgentReply is the outcome of one Converse call.
type AgentReply struct {
	Text      string
	ToolsUsed []string
}

// LoanAgent runs the bounded tool-calling loop against the reasoning model.
type LoanAgent struct {
	client providers.ReasoningClient
	tools  *ToolRegistry
}

func NewLoanAgent(client providers.ReasoningClient, tools *ToolRegistry) *LoanAgent {
	return &LoanAgent{client: client, tools: tools}
}

// Converse sends the conversation to the model and executes requested tools
// until the model stops asking for them or the iteration cap is hit. All text
// blocks produced along the way are collected into the reply.
func (a *LoanAgent) Converse(ctx context.Context, history []providers.ChatMessage, userMessage string) (*AgentReply, error) {
	messages := make([]providers.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, providers.UserMessage(userMessage))

	definitions := a.tools.Definitions()

	var texts []string
	var toolsUsed []string

	for iteration := 0; iteration < agentMaxIterations; iteration++ {
		resp, err := a.client.CreateCompletion(ctx, providers.CompletionRequest{
			System:   systemPrompt,
			Messages: messages,
			Tools:    definitions,
		})
		if err != nil {
			return nil, err
		}

		texts = append(texts, resp.Texts()...)

		toolUses := resp.ToolUses()
		if len(toolUses) == 0 || resp.StopReason != "tool_use" {
			text := strings.Join(texts, "\n")
			if strings.TrimSpace(text) == "" {
				text = fallbackEmptyReply
			}
			return &AgentReply{Text: text, ToolsUsed: toolsUsed}, nil
		}

		messages = append(messages, providers.ChatMessage{
			Role:    providers.RoleAssistant,
			Content: resp.Content,
		})

		results := make([]providers.ContentBlock, 0, len(toolUses))
		for _, use := range toolUses {
			logrus.WithFields(logrus.Fields{
				"tool":      use.Name,
				"iteration": iteration + 1,
			}).Info("Executing agent tool")

			result := a.tools.Execute(ctx, use.Name, use.Input)
			toolsUsed = append(toolsUsed, use.Name)
			results = append(results, providers.ToolResultBlock(use.ID, result.Content, result.IsError))
		}

		messages = append(messages, providers.ChatMessage{
			Role:    providers.RoleUser,
			Content: results,
		})
	}

	logrus.WithField("max_iterations", agentMaxIterations).Warn("Agent hit iteration cap")
	return &AgentReply{Text: fallbackMaxIterations, ToolsUsed: toolsUsed}, nil
}
