package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"supportdesk/app/service/conversation"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
)

const (
	maxReasonDuration = 30 * time.Second
	maxReplyTokens    = 1000
)

// Model serves both reply generation and structured extraction on top of one langchaingo model.
type Model struct {
	name        string
	model       llms.Model
	temperature float64
}

func NewModel(name string, model llms.Model, temperature float64) *Model {
	return &Model{
		name:        name,
		model:       model,
		temperature: temperature,
	}
}

func (m *Model) Generate(ctx context.Context, instruction string, history []conversation.Message) (string, error) {
	content, err := m.call(ctx, instruction, history)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

// Extract asks for a JSON object and decodes it into target.
func (m *Model) Extract(ctx context.Context, instruction string, history []conversation.Message, target any) error {
	content, err := m.call(ctx, instruction, history, llms.WithJSONMode())
	if err != nil {
		return err
	}

	if err = json.Unmarshal([]byte(cleanJSON(content)), target); err != nil {
		return oops.In("llm").With("model", m.name).Wrapf(err, "failed to unmarshal response")
	}

	return nil
}

func (m *Model) call(
	ctx context.Context,
	instruction string,
	history []conversation.Message,
	extra ...llms.CallOption,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	opts := append([]llms.CallOption{
		llms.WithTemperature(m.temperature),
		llms.WithMaxTokens(maxReplyTokens),
	}, extra...)

	resp, err := m.model.GenerateContent(ctx, buildMessages(instruction, history), opts...)
	if err != nil {
		return "", oops.In("llm").With("model", m.name).Wrapf(err, "failed to generate content")
	}

	if len(resp.Choices) == 0 {
		return "", oops.In("llm").With("model", m.name).Errorf("no choices in model response")
	}

	return resp.Choices[0].Content, nil
}

func buildMessages(instruction string, history []conversation.Message) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, instruction))

	for _, msg := range history {
		messages = append(messages, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	return messages
}

func messageType(role conversation.Role) llms.ChatMessageType {
	switch role {
	case conversation.RoleAssistant:
		return llms.ChatMessageTypeAI
	case conversation.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// cleanJSON strips the markdown fence some models wrap JSON in.
func cleanJSON(content string) string {
	result := strings.TrimSpace(content)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")

	return strings.TrimSpace(result)
}
