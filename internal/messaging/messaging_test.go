package messaging

import (
	"context"
	"testing"

	"github.com/jothamO/prism-admin/internal/models"
)

func TestRenderTextPlain(t *testing.T) {
	got := renderText(models.Message{Text: "hello", Kind: models.RenderPlain})
	if got != "hello" {
		t.Errorf("renderText = %q", got)
	}
}

func TestRenderTextFlattensButtons(t *testing.T) {
	got := renderText(models.Message{
		Text: "Pick one:",
		Kind: models.RenderButtonChoice,
		Buttons: []models.Button{
			{ID: "a", Label: "Confirm"},
			{ID: "b", Label: "Edit"},
		},
	})
	want := "Pick one:\n1. Confirm\n2. Edit"
	if got != want {
		t.Errorf("renderText = %q, want %q", got, want)
	}
}

func TestRenderTextFlattensSections(t *testing.T) {
	got := renderText(models.Message{
		Text: "Which calculation?",
		Kind: models.RenderListMenu,
		Sections: []models.ListSection{
			{Title: "VAT", Rows: []models.Button{{ID: "v", Label: "VAT on a purchase"}}},
			{Title: "Income tax", Rows: []models.Button{
				{ID: "a", Label: "Annual"},
				{ID: "m", Label: "Monthly"},
			}},
		},
	})
	want := "Which calculation?\n*VAT*\n1. VAT on a purchase\n*Income tax*\n2. Annual\n3. Monthly"
	if got != want {
		t.Errorf("renderText = %q, want %q", got, want)
	}
}

func TestNewTwilioChannelRequiresConfig(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewTwilioChannel(WithMirrorTo("+2348000000000")); err == nil {
		t.Error("missing credentials accepted")
	}
	if _, err := NewTwilioChannel(
		WithAccountSID("AC0"), WithAuthToken("tok"), WithFromWhats("whatsapp:+123"),
	); err == nil {
		t.Error("missing mirror destination accepted")
	}
	if _, err := NewTwilioChannel(
		WithAccountSID("AC0"), WithAuthToken("tok"),
		WithFromWhats("whatsapp:+123"), WithMirrorTo("+2348000000000"),
	); err != nil {
		t.Errorf("full config rejected: %v", err)
	}
}

func TestLogChannelIsNoOp(t *testing.T) {
	ch := NewLogChannel()
	if ch.Name() != "log" {
		t.Errorf("Name = %q", ch.Name())
	}
	if err := ch.Deliver(context.Background(), "s1", models.Message{Text: "hi"}); err != nil {
		t.Errorf("Deliver: %v", err)
	}
}
