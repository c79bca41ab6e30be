// Package generator wraps an OpenAI-compatible chat completion API behind a
// small interface the ideas service consumes. Any endpoint speaking the
// OpenAI wire protocol works via the base URL override.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const ideaSystemPrompt = "You are a concise brainstorming assistant. " +
	"Reply with a single actionable idea as plain text, no preamble."

const tasksSystemPrompt = "You break an idea down into concrete next steps. " +
	"Reply with a JSON array of short task strings and nothing else."

// Client calls a chat completion endpoint to produce ideas and task
// breakdowns.
type Client struct {
	api   openai.Client
	model string
}

// NewClient builds a generator client. baseURL may be empty to use the
// default OpenAI endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		api:   openai.NewClient(opts...),
		model: model,
	}
}

// GenerateIdea asks the model for one idea guided by the user prompt and the
// preferred categories.
func (c *Client) GenerateIdea(ctx context.Context, prompt string, categories []string) (string, error) {
	user := prompt
	if user == "" {
		user = "Suggest one idea worth capturing today."
	}
	if len(categories) > 0 {
		user = fmt.Sprintf("%s\nPreferred categories: %s.", user, strings.Join(categories, ", "))
	}

	content, err := c.complete(ctx, ideaSystemPrompt, user)
	if err != nil {
		return "", err
	}
	idea := strings.TrimSpace(content)
	if idea == "" {
		return "", errors.New("generator returned an empty idea")
	}
	return idea, nil
}

// GenerateTasks asks the model to break an idea into short task strings.
func (c *Client) GenerateTasks(ctx context.Context, idea string) ([]string, error) {
	content, err := c.complete(ctx, tasksSystemPrompt, idea)
	if err != nil {
		return nil, err
	}
	tasks, err := parseTaskList(content)
	if err != nil {
		return nil, fmt.Errorf("parsing task breakdown: %w", err)
	}
	return tasks, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// parseTaskList decodes a JSON array of strings, tolerating the fenced code
// block wrapping some models insist on.
func parseTaskList(content string) ([]string, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var tasks []string
	if err := json.Unmarshal([]byte(trimmed), &tasks); err != nil {
		return nil, err
	}

	out := tasks[:0]
	for _, task := range tasks {
		if task = strings.TrimSpace(task); task != "" {
			out = append(out, task)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no tasks in response")
	}
	return out, nil
}
