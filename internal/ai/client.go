package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/example/reminderd/internal/models"
)

// Client turns free-text bot messages into reminder drafts through an
// OpenAI-compatible endpoint. Optional: without an API key the bot simply
// ignores non-command messages.
type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// ReminderDraft is the parsed intent of a free-text reminder request.
type ReminderDraft struct {
	Message       string
	NextExecution time.Time
	Recurrence    *models.Recurrence
}

const parsePrompt = `You convert a reminder request into JSON. The current UTC time is %s.
Respond with a single JSON object:
{
  "ok": true|false,
  "message": "<what to remind, short>",
  "next_execution": "<RFC3339 UTC timestamp of the first occurrence>",
  "recurrence": {"type": "minutely|hourly|daily|weekly|monthly|yearly", "interval": <positive integer>} or null
}
Set "ok" to false when the text is not a reminder request. Times without a date mean the next such time in the future.`

// ParseReminder asks the model to extract a reminder draft from text.
// It returns nil when the text is not a reminder request.
func (c *Client) ParseReminder(ctx context.Context, text string, now time.Time) (*ReminderDraft, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(parsePrompt, now.UTC().Format(time.RFC3339))},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	var parsed struct {
		OK            bool               `json:"ok"`
		Message       string             `json:"message"`
		NextExecution string             `json:"next_execution"`
		Recurrence    *models.Recurrence `json:"recurrence"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	if !parsed.OK {
		return nil, nil
	}

	due, err := time.Parse(time.RFC3339, parsed.NextExecution)
	if err != nil {
		return nil, fmt.Errorf("parse next_execution %q: %w", parsed.NextExecution, err)
	}
	if parsed.Recurrence != nil {
		if err := parsed.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}

	return &ReminderDraft{
		Message:       parsed.Message,
		NextExecution: due.UTC(),
		Recurrence:    parsed.Recurrence,
	}, nil
}
