package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jothamO/prism-admin/internal/models"
)

// fakeCompletions records the request and returns a canned completion.
type fakeCompletions struct {
	gotParams openai.ChatCompletionNewParams
	content   string
	err       error
}

func (f *fakeCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.gotParams = body
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestClassifyParsesIntent(t *testing.T) {
	fake := &fakeCompletions{content: `{"intent":{"name":"calculate_vat","confidence":0.92,"entities":{"amount":"50000"},"reasoning":"asks about VAT"}}`}
	c := &Classifier{chat: fake, model: openai.ChatModelGPT4oMini}

	result, err := c.Classify(context.Background(), "how much VAT on 50000?", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Intent.Name != "calculate_vat" {
		t.Errorf("Name = %q", result.Intent.Name)
	}
	if result.Intent.Confidence != 0.92 {
		t.Errorf("Confidence = %v", result.Intent.Confidence)
	}
	if got, ok := result.Intent.Entity("amount"); !ok || got != "50000" {
		t.Errorf("Entity(amount) = %q, %v", got, ok)
	}
	if result.Intent.Source != models.IntentSourceClassifier {
		t.Errorf("Source = %q", result.Intent.Source)
	}
	if result.Check != nil {
		t.Error("Check should be nil when omitted")
	}
}

func TestClassifySendsWindowBeforeMessage(t *testing.T) {
	fake := &fakeCompletions{content: `{"intent":{"name":"greeting","confidence":1}}`}
	c := &Classifier{chat: fake, model: openai.ChatModelGPT4oMini}

	window := []models.Turn{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "hi there"},
	}
	if _, err := c.Classify(context.Background(), "thanks", window); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// system prompt + 2 window turns + latest message
	if len(fake.gotParams.Messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(fake.gotParams.Messages))
	}
}

func TestClassifyDisabled(t *testing.T) {
	var nilClassifier *Classifier
	if nilClassifier.Enabled() {
		t.Error("nil classifier reports enabled")
	}
	if _, err := nilClassifier.Classify(context.Background(), "hi", nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	disabled := &Classifier{model: openai.ChatModelGPT4oMini}
	if disabled.Enabled() {
		t.Error("keyless classifier reports enabled")
	}
	if _, err := disabled.Classify(context.Background(), "hi", nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestClassifyRejectsEmptyMessageLocally(t *testing.T) {
	fake := &fakeCompletions{err: errors.New("network should not be reached")}
	c := &Classifier{chat: fake, model: openai.ChatModelGPT4oMini}

	if _, err := c.Classify(context.Background(), "   ", nil); !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestClassifyWrapsTransportError(t *testing.T) {
	rootErr := errors.New("connection refused")
	c := &Classifier{chat: &fakeCompletions{err: rootErr}, model: openai.ChatModelGPT4oMini}

	if _, err := c.Classify(context.Background(), "hi", nil); !errors.Is(err, rootErr) {
		t.Errorf("err = %v, want wrapped transport error", err)
	}
}

func TestParseResponseToleratesFences(t *testing.T) {
	content := "Sure, here is the classification:\n```json\n" +
		`{"intent":{"name":"categorize_expense","confidence":0.8,"entities":{"amount":"900000","description":"gift to cousin"}},"artificialTransactionCheck":{"isSuspicious":true,"warning":"This may be an artificial transaction.","actReference":"Section 22"}}` +
		"\n```"

	result, err := parseResponse(content)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if result.Intent.Name != "categorize_expense" {
		t.Errorf("Name = %q", result.Intent.Name)
	}
	if result.Check == nil || !result.Check.IsSuspicious {
		t.Fatalf("Check = %+v, want suspicious", result.Check)
	}
	if result.Check.ActReference != "Section 22" {
		t.Errorf("ActReference = %q", result.Check.ActReference)
	}
}

func TestParseResponseClampsConfidence(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want float64
	}{
		{`{"intent":{"name":"greeting","confidence":1.7}}`, 1},
		{`{"intent":{"name":"greeting","confidence":-0.3}}`, 0},
	} {
		result, err := parseResponse(tc.raw)
		if err != nil {
			t.Fatalf("parseResponse(%q): %v", tc.raw, err)
		}
		if result.Intent.Confidence != tc.want {
			t.Errorf("confidence for %q = %v, want %v", tc.raw, result.Intent.Confidence, tc.want)
		}
	}
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{not json}", `{"intent":{"confidence":0.5}}`} {
		if _, err := parseResponse(raw); err == nil {
			t.Errorf("parseResponse(%q) did not fail", raw)
		}
	}
}
