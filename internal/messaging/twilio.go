package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jothamO/prism-admin/internal/models"
)

// Opts holds configuration options for the Twilio mirror channel.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
	MirrorTo   string
}

// Option defines a configuration option for the Twilio mirror channel.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number, in
// "whatsapp:+1234567890" format.
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// WithMirrorTo sets the destination number that receives mirrored
// simulator output.
func WithMirrorTo(to string) Option {
	return func(o *Opts) { o.MirrorTo = to }
}

// TwilioChannel mirrors simulator bot messages to a WhatsApp number via
// the Twilio REST API. Interactive kinds are flattened to numbered text
// because the Twilio Go SDK has no native button support.
type TwilioChannel struct {
	client   *twilio.RestClient
	from     string
	mirrorTo string
}

// NewTwilioChannel creates a Twilio mirror channel. Credentials fall
// back to the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and
// TWILIO_FROM_NUMBER environment variables when not set via options.
func NewTwilioChannel(opts ...Option) (*TwilioChannel, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("NewTwilioChannel: config loaded",
		"accountSID_set", cfg.AccountSID != "",
		"authToken_set", cfg.AuthToken != "",
		"fromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}
	if cfg.MirrorTo == "" {
		return nil, fmt.Errorf("mirror destination must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioChannel{
		client:   client,
		from:     cfg.FromWhats,
		mirrorTo: cfg.MirrorTo,
	}, nil
}

// Name returns the channel identifier.
func (c *TwilioChannel) Name() string { return "twilio" }

// Deliver sends one bot message to the mirror destination.
func (c *TwilioChannel) Deliver(ctx context.Context, sessionID string, msg models.Message) error {
	body := renderText(msg)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + c.mirrorTo)
	params.SetFrom(c.from)
	params.SetBody(body)

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioChannel.Deliver: send failed", "sessionID", sessionID, "to", c.mirrorTo, "error", err)
		return fmt.Errorf("failed to mirror message to %s: %w", c.mirrorTo, err)
	}

	slog.Debug("TwilioChannel.Deliver: message mirrored", "sessionID", sessionID, "messageID", msg.ID)
	return nil
}

// renderText flattens a structured message into plain WhatsApp text.
// Buttons become numbered lines; list sections keep their headings.
func renderText(msg models.Message) string {
	var b strings.Builder
	b.WriteString(msg.Text)
	switch msg.Kind {
	case models.RenderButtonChoice:
		for i, btn := range msg.Buttons {
			fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Label)
		}
	case models.RenderListMenu:
		n := 0
		for _, sec := range msg.Sections {
			fmt.Fprintf(&b, "\n*%s*", sec.Title)
			for _, btn := range sec.Rows {
				n++
				fmt.Fprintf(&b, "\n%d. %s", n, btn.Label)
			}
		}
	}
	return b.String()
}
