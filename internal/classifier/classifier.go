// Package classifier adapts the external natural-language intent classifier.
//
// The adapter sends the user's message plus a bounded conversation window to
// an OpenAI-compatible chat completion endpoint and parses the structured
// intent it returns. The core never recomputes confidence or entities; it
// relays what the collaborator produced.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jothamO/prism-admin/internal/models"
)

// ErrDisabled is returned when no API key is configured. Callers treat it as
// "no classifier signal" and fall through to the default handler.
var ErrDisabled = fmt.Errorf("intent classifier disabled: no API key configured")

// IntentNames is the fixed vocabulary the router dispatches on. The system
// prompt pins the collaborator to this set; anything else is mapped to
// IntentUnknown by the router.
var IntentNames = []string{
	"calculate_vat",
	"calculate_income_tax",
	"relief_info",
	"transaction_summary",
	"tax_calculation_menu",
	"upload_receipt",
	"categorize_expense",
	"verify_identity",
	"connect_bank",
	"set_reminder",
	"greeting",
	"unknown",
}

// ArtificialTransactionCheck is the collaborator's optional advisory verdict
// on whether a described transaction looks artificial.
type ArtificialTransactionCheck struct {
	IsSuspicious bool   `json:"isSuspicious"`
	Warning      string `json:"warning,omitempty"`
	ActReference string `json:"actReference,omitempty"`
}

// Result bundles the classified intent with the advisory compliance check.
type Result struct {
	Intent *models.Intent
	Check  *ArtificialTransactionCheck
}

// completionService is the minimal chat-completion surface used, extracted
// for test doubles.
type completionService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the classifier.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   openai.ChatModel
}

// Option defines a configuration option for the classifier.
type Option func(*Opts)

// WithAPIKey sets the API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the adapter at a non-default (e.g. self-hosted) endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the default classification model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// Classifier is the external-NLU adapter. A nil-chat classifier is disabled
// and returns ErrDisabled from Classify.
type Classifier struct {
	chat  completionService
	model openai.ChatModel
}

// New creates a classifier from options, falling back to $OPENAI_API_KEY.
// A missing key yields a disabled (non-nil) classifier rather than an error,
// since the simulator degrades to grammar-only routing without it.
func New(opts ...Option) *Classifier {
	cfg := Opts{Model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Warn("classifier.New: no API key, classifier disabled")
		return &Classifier{model: cfg.Model}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("classifier.New: classifier enabled", "model", cfg.Model, "baseURL_set", cfg.BaseURL != "")
	return &Classifier{chat: &cli.Chat.Completions, model: cfg.Model}
}

// Enabled reports whether the adapter has a live collaborator behind it.
func (c *Classifier) Enabled() bool {
	return c != nil && c.chat != nil
}

const systemPrompt = `You are the intent classifier for a tax-compliance assistant.
Classify the user's latest message into exactly one intent from this list:
%s

Respond with a single JSON object and nothing else:
{"intent":{"name":"...","confidence":0.0,"entities":{"amount":"...","description":"..."},"reasoning":"..."},"artificialTransactionCheck":{"isSuspicious":false,"warning":"","actReference":""}}

Only include entities you can extract verbatim from the message. Amounts are
plain integers in naira with no separators. Omit artificialTransactionCheck
unless the message describes an expense or transaction.`

// Classify sends the message with the bounded context window and returns the
// structured intent. The message is validated before any network call; an
// empty message is rejected locally.
func (c *Classifier) Classify(ctx context.Context, message string, window []models.Turn) (*Result, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(message) == "" {
		return nil, models.ErrEmptyMessage
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(systemPrompt, strings.Join(IntentNames, ", "))),
	}
	for _, turn := range window {
		if turn.Role == "user" {
			messages = append(messages, openai.UserMessage(turn.Text))
		} else {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(0),
	})
	if err != nil {
		slog.Error("classifier.Classify: completion failed", "error", err)
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("intent classification returned no choices")
	}

	result, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Error("classifier.Classify: unparseable response", "error", err)
		return nil, err
	}
	slog.Debug("classifier.Classify: intent classified",
		"intent", result.Intent.Name,
		"confidence", result.Intent.Confidence,
		"entities", len(result.Intent.Entities))
	return result, nil
}

// wireResponse mirrors the collaborator's JSON contract.
type wireResponse struct {
	Intent struct {
		Name       string            `json:"name"`
		Confidence float64           `json:"confidence"`
		Entities   map[string]string `json:"entities"`
		Reasoning  string            `json:"reasoning"`
	} `json:"intent"`
	Check *ArtificialTransactionCheck `json:"artificialTransactionCheck"`
}

// parseResponse extracts the JSON object from the model output, tolerating
// code fences or prose around it.
func parseResponse(content string) (*Result, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in classifier response")
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("invalid classifier response JSON: %w", err)
	}
	if wire.Intent.Name == "" {
		return nil, fmt.Errorf("classifier response missing intent name")
	}

	confidence := wire.Intent.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Result{
		Intent: &models.Intent{
			Name:       wire.Intent.Name,
			Confidence: confidence,
			Entities:   wire.Intent.Entities,
			Reasoning:  wire.Intent.Reasoning,
			Source:     models.IntentSourceClassifier,
		},
		Check: wire.Check,
	}, nil
}
