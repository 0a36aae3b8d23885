// Package llmcheck implements canon.Classifier on top of an OpenAI-compatible
// chat completion endpoint using JSON-schema structured output.
package llmcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/models"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.ChatModelGPT4oMini

// Verdict is the structured response requested from the model.
type Verdict struct {
	Violations []Flag `json:"violations" jsonschema_description:"Every listed rule the passage violates. Empty when the passage is consistent."`
}

// Flag is one violated rule in a Verdict.
type Flag struct {
	RuleID   string `json:"rule_id" jsonschema_description:"The id of the violated rule, copied exactly from the rule list."`
	Evidence string `json:"evidence" jsonschema_description:"The shortest quote from the passage that shows the violation."`
}

// GenerateSchema reflects T into an inline JSON schema suitable for strict
// structured output.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var verdictSchema = GenerateSchema[Verdict]()

// Config configures the classifier.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Classifier asks a chat model which rules a passage violates.
type Classifier struct {
	client openai.Client
	model  openai.ChatModel
}

var _ canon.Classifier = (*Classifier)(nil)

// New creates a Classifier.
func New(cfg Config) *Classifier {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := DefaultModel
	if cfg.Model != "" {
		model = openai.ChatModel(cfg.Model)
	}
	return &Classifier{client: openai.NewClient(opts...), model: model}
}

// Check implements canon.Classifier. Flags for rule ids the model invented
// are dropped.
func (c *Classifier) Check(ctx context.Context, rules []models.CanonRule, text string) ([]canon.Finding, error) {
	known := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		known[r.ID] = struct{}{}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(rules)),
			openai.UserMessage(text),
		},
		Model: c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "canon_verdict",
					Description: openai.String("Canon rules violated by the passage"),
					Schema:      verdictSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llmcheck: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("llmcheck: empty completion")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &verdict); err != nil {
		return nil, fmt.Errorf("llmcheck: decode verdict: %w", err)
	}
	var out []canon.Finding
	for _, f := range verdict.Violations {
		if _, ok := known[f.RuleID]; !ok {
			continue
		}
		out = append(out, canon.Finding{RuleID: f.RuleID, MatchedExample: f.Evidence})
	}
	return out, nil
}

func systemPrompt(rules []models.CanonRule) string {
	var b strings.Builder
	b.WriteString("You check passages of a fiction series for consistency with its canon rules.\n")
	b.WriteString("Report only clear violations of the rules below; ignore style and quality.\n\nRules:\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "- id=%s type=%s name=%q", r.ID, r.RuleType, r.RuleName)
		if r.RuleDescription != "" {
			fmt.Fprintf(&b, " description=%q", r.RuleDescription)
		}
		for _, ex := range r.InvalidExamples {
			fmt.Fprintf(&b, " violating_example=%q", ex)
		}
		for _, ex := range r.ValidExamples {
			fmt.Fprintf(&b, " allowed_example=%q", ex)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
