package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hray3182/remind-engine/internal/models"
)

// Client parses natural-language reminder requests into structured
// reminder drafts via an OpenAI-compatible chat endpoint.
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

func (c *Client) SetModel(model string) {
	c.model = model
}

// Draft is the structured output of a parse: everything needed to build
// a Reminder, with times in "YYYY-MM-DD HH:MM" local format.
type Draft struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	StartTime           string  `json:"start_time"`
	RecurrenceType      string  `json:"recurrence_type"`
	DaysOfWeek          []int   `json:"days_of_week"`
	NagModeEnabled      bool    `json:"nag_mode_enabled"`
	NagIntervalMinutes  int     `json:"nag_interval_minutes"`
	NagTotalRepetitions int     `json:"nag_total_repetitions"`
	Confidence          float64 `json:"confidence"`
	RawResponse         string  `json:"-"`
}

const systemPromptTemplate = `You are a reminder parser. Convert the user's natural-language
request into a structured reminder draft.

Current time: %s

Rules:
1. Resolve relative times ("tomorrow", "next Monday", "in 3 hours") against the
   current time and output them as YYYY-MM-DD HH:MM.
2. recurrence_type is one of: none, daily, weekly, custom. Use custom only when
   specific weekdays are named; days_of_week then lists them as 1=Monday .. 7=Sunday.
3. When the user asks to be nagged or reminded repeatedly until done, set
   nag_mode_enabled with a sensible nag_interval_minutes and nag_total_repetitions.
4. confidence reflects how certain you are that the draft matches the request.`

func getSystemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"))
}

var draftSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {
			"type": "string",
			"description": "Short reminder title"
		},
		"description": {
			"type": "string",
			"description": "Optional longer description"
		},
		"start_time": {
			"type": "string",
			"description": "First occurrence, format YYYY-MM-DD HH:MM"
		},
		"recurrence_type": {
			"type": "string",
			"enum": ["none", "daily", "weekly", "custom"],
			"description": "How the reminder repeats"
		},
		"days_of_week": {
			"type": "array",
			"items": {"type": "integer", "minimum": 1, "maximum": 7},
			"description": "Weekdays for custom recurrence, 1=Monday .. 7=Sunday"
		},
		"nag_mode_enabled": {
			"type": "boolean",
			"description": "Whether to re-notify repeatedly until completed"
		},
		"nag_interval_minutes": {
			"type": "integer",
			"description": "Minutes between nag re-notifications"
		},
		"nag_total_repetitions": {
			"type": "integer",
			"description": "Upper bound on nag re-notifications"
		},
		"confidence": {
			"type": "number",
			"minimum": 0,
			"maximum": 1,
			"description": "Confidence score between 0 and 1"
		}
	},
	"required": ["title", "start_time", "recurrence_type", "confidence"],
	"additionalProperties": false
}`)

func (c *Client) ParseReminder(ctx context.Context, userMessage string) (*Draft, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMessage,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "reminder_draft",
				Schema: draftSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	draft := &Draft{RawResponse: content}
	if err := json.Unmarshal([]byte(content), draft); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return draft, nil
}

// ToReminder materializes the draft into a reminder ready for the edit
// boundary; Validate still applies before scheduling.
func (d *Draft) ToReminder() (*models.Reminder, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", d.StartTime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start time %q: %w", d.StartTime, err)
	}

	r := &models.Reminder{
		Title:             d.Title,
		Description:       d.Description,
		Priority:          models.PriorityMedium,
		StartTime:         start,
		OriginalStartTime: start,
		RecurrenceType:    models.RecurrenceType(d.RecurrenceType),
		DaysOfWeek:        d.DaysOfWeek,
		Enabled:           true,
	}
	if d.NagModeEnabled && d.NagIntervalMinutes > 0 {
		interval := time.Duration(d.NagIntervalMinutes) * time.Minute
		r.NagModeEnabled = true
		r.NagInterval = &interval
		r.NagTotalRepetitions = d.NagTotalRepetitions
	}
	return r, nil
}
