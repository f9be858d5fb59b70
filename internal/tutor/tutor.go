// Package tutor produces study-tutor replies for a goal.
package tutor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v2"

	"pathwise/api/internal/goals"
)

//go:embed prompts/replies.yaml
var repliesYAML []byte

var ErrUnknownType = errors.New("unknown chat type")

type Type string

const (
	TypeChat            Type = "chat"
	TypeLearningModule  Type = "learning_module"
	TypePracticeProblem Type = "practice_problem"
)

// Request is everything a strategy may look at. Responders hold no state
// between calls.
type Request struct {
	Goal    goals.Goal
	Message string
	Type    Type
}

// Responder turns goal context plus a message into reply text.
type Responder interface {
	Reply(ctx context.Context, req Request) (string, error)
}

type replyFile struct {
	DefaultType string            `yaml:"default_type"`
	Replies     map[string]string `yaml:"replies"`
}

type replyData struct {
	Title     string
	Message   string
	Objective string
}

// TemplateResponder renders one embedded template per chat type.
type TemplateResponder struct {
	defaultType Type
	templates   map[Type]*template.Template
}

func NewTemplateResponder() (*TemplateResponder, error) {
	return parseReplies(repliesYAML)
}

// MustTemplateResponder panics if the embedded templates are malformed.
func MustTemplateResponder() *TemplateResponder {
	r, err := NewTemplateResponder()
	if err != nil {
		panic(err)
	}
	return r
}

func parseReplies(raw []byte) (*TemplateResponder, error) {
	var file replyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse reply templates: %w", err)
	}
	if len(file.Replies) == 0 {
		return nil, errors.New("parse reply templates: no replies defined")
	}

	r := &TemplateResponder{
		defaultType: Type(file.DefaultType),
		templates:   make(map[Type]*template.Template, len(file.Replies)),
	}
	for name, text := range file.Replies {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("parse reply template %s: %w", name, err)
		}
		r.templates[Type(name)] = tmpl
	}
	if _, ok := r.templates[r.defaultType]; !ok {
		return nil, fmt.Errorf("default reply type %q has no template", r.defaultType)
	}
	return r, nil
}

// Types lists the chat types this responder understands.
func (r *TemplateResponder) Types() []Type {
	out := make([]Type, 0, len(r.templates))
	for t := range r.templates {
		out = append(out, t)
	}
	return out
}

// Resolve maps an empty type to the default and rejects unknown ones.
func (r *TemplateResponder) Resolve(t Type) (Type, error) {
	if t == "" {
		return r.defaultType, nil
	}
	if _, ok := r.templates[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return t, nil
}

func (r *TemplateResponder) Reply(_ context.Context, req Request) (string, error) {
	t, err := r.Resolve(req.Type)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	data := replyData{
		Title:     req.Goal.Title,
		Message:   req.Message,
		Objective: req.Goal.NextObjective(),
	}
	if err := r.templates[t].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s reply: %w", t, err)
	}
	return buf.String(), nil
}
