package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/session"
)

// turn carries the per-message processing state: the loaded session, the
// staleness token, and the ordered bot responses accumulated so far.
type turn struct {
	ctx   context.Context
	e     *Engine
	s     *models.Session
	token int64

	// window is the classifier context as it stood before this turn's
	// user message was appended.
	window []models.Turn

	// intent, when set, is attached to every subsequent emission for
	// traceability.
	intent *models.Intent

	out   []models.Message
	stale bool
}

// beginTurn bumps the turn counter, records the inbound user message, and
// persists both before any routing happens. Persisting early is what lets
// an out-of-band reset invalidate this turn's token.
func (e *Engine) beginTurn(ctx context.Context, s *models.Session, text string) (*turn, error) {
	token := s.Turn + 1
	s.Turn = token

	window := make([]models.Turn, len(s.Window))
	copy(window, s.Window)
	s.AppendTurn("user", text)

	userMsg := models.Message{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Sender:    models.SenderUser,
		Text:      text,
		Kind:      models.RenderPlain,
		Time:      time.Now(),
	}
	if err := e.store.AddMessage(userMsg); err != nil {
		slog.Error("Engine.beginTurn: failed to record user message", "sessionID", s.ID, "error", err)
	}
	if err := e.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to start turn: %w", err)
	}

	slog.Debug("Engine.beginTurn: turn started", "sessionID", s.ID, "turn", token, "state", s.State)
	return &turn{ctx: ctx, e: e, s: s, token: token, window: window}, nil
}

// finishTurn persists the session mutations unless the turn went stale, and
// returns the accumulated responses. Staleness is re-checked here so that a
// reset landing during a turn with no collaborator call is still honored.
func (e *Engine) finishTurn(t *turn) ([]models.Message, error) {
	if t.stale || e.staleTurn(t) {
		slog.Debug("Engine.finishTurn: stale turn, mutations discarded", "sessionID", t.s.ID, "turn", t.token)
		return t.out, nil
	}
	if err := e.sessions.Save(t.ctx, t.s); err != nil {
		slog.Error("Engine.finishTurn: save failed", "sessionID", t.s.ID, "error", err)
	}
	return t.out, nil
}

// emit records one bot message to the transcript, the classifier window, and
// the mirror channel, and appends it to the turn's responses.
func (t *turn) emit(msg models.Message) {
	msg.ID = uuid.NewString()
	msg.SessionID = t.s.ID
	msg.Sender = models.SenderBot
	msg.Time = time.Now()
	if msg.Kind == "" {
		msg.Kind = models.RenderPlain
	}
	if msg.Intent == nil {
		msg.Intent = t.intent
	}

	if err := t.e.store.AddMessage(msg); err != nil {
		slog.Error("turn.emit: failed to record bot message", "sessionID", t.s.ID, "error", err)
	}
	t.s.AppendTurn("assistant", msg.Text)
	if err := t.e.channel.Deliver(t.ctx, t.s.ID, msg); err != nil {
		slog.Warn("turn.emit: mirror delivery failed", "sessionID", t.s.ID, "channel", t.e.channel.Name(), "error", err)
	}
	t.out = append(t.out, msg)
}

// say emits a plain text response. The text is used verbatim, so bodies
// containing % verbs are safe.
func (t *turn) say(text string) {
	t.emit(models.Message{Text: text, Kind: models.RenderPlain})
}

// sayf emits a formatted plain text response.
func (t *turn) sayf(format string, args ...any) {
	t.say(fmt.Sprintf(format, args...))
}

// sayButtons emits a buttonChoice response.
func (t *turn) sayButtons(text string, buttons []models.Button) {
	t.emit(models.Message{Text: text, Kind: models.RenderButtonChoice, Buttons: buttons})
}

// sayList emits a listMenu response.
func (t *turn) sayList(text string, sections []models.ListSection) {
	t.emit(models.Message{Text: text, Kind: models.RenderListMenu, Sections: sections})
}

// sayPrompt emits a state-machine prompt.
func (t *turn) sayPrompt(p *session.Prompt) {
	t.emit(models.Message{Text: p.Text, Kind: p.Kind, Buttons: p.Buttons})
}

// notUnderstood is the terminal routing default. Unroutable input is a
// conversation event, never an error.
func (t *turn) notUnderstood() {
	t.say("I didn't understand that. Type 'help' to see what I can do.")
}

// serviceUnavailable is the uniform collaborator-failure response.
func (t *turn) serviceUnavailable() {
	t.say("Sorry, that didn't work just now. Please try again in a moment.")
}
