package tutor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

//go:embed prompts/system.yaml
var systemYAML []byte

type systemPrompt struct {
	SystemPrompt string `yaml:"system_prompt"`
}

type systemData struct {
	Title       string
	Description string
	Timeline    string
	Progress    int
	Objective   string
	Type        Type
}

// OpenAIResponder asks a chat-completion model for the reply.
type OpenAIResponder struct {
	client *openai.Client
	model  string
	prompt *template.Template
}

// NewOpenAIResponder builds a client for apiKey. An empty baseURL keeps the
// library default.
func NewOpenAIResponder(apiKey, baseURL, model string) (*OpenAIResponder, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	var prompt systemPrompt
	if err := yaml.Unmarshal(systemYAML, &prompt); err != nil {
		return nil, fmt.Errorf("error parsing prompt yaml: %w", err)
	}
	tmpl, err := template.New("system").Parse(prompt.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	return &OpenAIResponder{
		client: openai.NewClientWithConfig(config),
		model:  model,
		prompt: tmpl,
	}, nil
}

func (o *OpenAIResponder) Reply(ctx context.Context, req Request) (string, error) {
	if req.Type == "" {
		req.Type = TypeChat
	}
	var system bytes.Buffer
	if err := o.prompt.Execute(&system, systemData{
		Title:       req.Goal.Title,
		Description: req.Goal.Description,
		Timeline:    req.Goal.Timeline,
		Progress:    req.Goal.Progress,
		Objective:   req.Goal.NextObjective(),
		Type:        req.Type,
	}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system.String()},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI API returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("OpenAI API returned an empty reply")
	}
	return content, nil
}

// Fallback tries Primary and answers from Secondary when it fails.
// Validation errors from Secondary are returned as-is.
type Fallback struct {
	Primary   Responder
	Secondary *TemplateResponder
	Logger    *logrus.Entry
}

func (f Fallback) Reply(ctx context.Context, req Request) (string, error) {
	t, err := f.Secondary.Resolve(req.Type)
	if err != nil {
		return "", err
	}
	req.Type = t

	reply, err := f.Primary.Reply(ctx, req)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if f.Logger != nil {
		f.Logger.WithError(err).WithField("goal_id", req.Goal.ID).Warn("tutor model unavailable, using template reply")
	}
	return f.Secondary.Reply(ctx, req)
}
