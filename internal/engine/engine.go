// Package engine implements the dialogue driver: it receives inbound
// simulator input, routes it through the layered pipeline (button IDs,
// state validators, command grammar, intent classifier), and emits the
// ordered bot responses for the turn.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jothamO/prism-admin/internal/bankstmt"
	"github.com/jothamO/prism-admin/internal/classifier"
	"github.com/jothamO/prism-admin/internal/grammar"
	"github.com/jothamO/prism-admin/internal/messaging"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/session"
	"github.com/jothamO/prism-admin/internal/store"
	"github.com/jothamO/prism-admin/internal/taxapi"
)

// IntentClassifier is the external-NLU surface the engine consumes. It is
// satisfied by *classifier.Classifier and by test doubles.
type IntentClassifier interface {
	Enabled() bool
	Classify(ctx context.Context, message string, window []models.Turn) (*classifier.Result, error)
}

// TaxService is the calculation-collaborator surface the engine consumes.
// It is satisfied by *taxapi.Client and by test doubles.
type TaxService interface {
	CalculateVAT(ctx context.Context, req taxapi.VATRequest) (*taxapi.VATResult, error)
	CalculateIncomeTax(ctx context.Context, req taxapi.IncomeTaxRequest) (*taxapi.IncomeTaxResult, error)
	ReconcileVAT(ctx context.Context, req taxapi.ReconciliationRequest) (*taxapi.ReconciliationResult, error)
	OCRDocument(ctx context.Context, req taxapi.OCRRequest) (*taxapi.OCRResult, error)
}

// Opts holds configuration options for the engine.
type Opts struct {
	Classifier IntentClassifier
	Tax        TaxService
	Channel    messaging.Channel
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithClassifier wires the intent classifier. Without one the engine
// routes on grammar alone.
func WithClassifier(c IntentClassifier) Option {
	return func(o *Opts) { o.Classifier = c }
}

// WithTaxService wires the calculation collaborator. Without one every
// calculator command resolves to a service-unavailable message.
func WithTaxService(t TaxService) Option {
	return func(o *Opts) { o.Tax = t }
}

// WithChannel wires a delivery mirror for emitted bot messages.
func WithChannel(ch messaging.Channel) Option {
	return func(o *Opts) { o.Channel = ch }
}

// Engine drives simulator conversations. One turn is in flight per session
// at a time; concurrent senders for the same session queue on its lock.
type Engine struct {
	sessions   *session.Manager
	store      store.Store
	classifier IntentClassifier
	tax        TaxService
	channel    messaging.Channel
	policy     models.Policy

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	stmtMu     sync.RWMutex
	statements map[string]*bankstmt.Statement
}

// New creates an engine over a session manager and its backing store.
func New(sessions *session.Manager, st store.Store, opts ...Option) *Engine {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	ch := cfg.Channel
	if ch == nil {
		ch = messaging.NewLogChannel()
	}
	slog.Debug("engine.New: engine created",
		"classifier_set", cfg.Classifier != nil,
		"tax_set", cfg.Tax != nil,
		"channel", ch.Name())
	return &Engine{
		sessions:   sessions,
		store:      st,
		classifier: cfg.Classifier,
		tax:        cfg.Tax,
		channel:    ch,
		policy:     sessions.Policy(),
		locks:      make(map[string]*sync.Mutex),
		statements: make(map[string]*bankstmt.Statement),
	}
}

// sessionLock returns the per-session turn lock, creating it on first use.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

// resetWords are recognized from any state, ahead of the state validators.
var resetWords = map[string]bool{"reset": true, "start over": true, "restart": true}

// HandleMessage processes one typed user message and returns the ordered bot
// responses. Routing failures degrade to a bot message; an error return means
// the message never entered the session (unknown session, empty text).
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) ([]models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrEmptyMessage
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := e.beginTurn(ctx, s, text)
	if err != nil {
		return nil, err
	}
	e.route(t, text)
	return e.finishTurn(t)
}

// HandleSelection processes a tapped button. The button ID is routed through
// the selection table ahead of every other tier.
func (e *Engine) HandleSelection(ctx context.Context, sessionID, buttonID string) ([]models.Message, error) {
	if strings.TrimSpace(buttonID) == "" {
		return nil, models.ErrEmptyMessage
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := e.beginTurn(ctx, s, buttonID)
	if err != nil {
		return nil, err
	}
	e.routeSelection(t, buttonID)
	return e.finishTurn(t)
}

// StartSession creates a new session for the given entity type.
func (e *Engine) StartSession(ctx context.Context, entityType models.EntityType) (*models.Session, error) {
	return e.sessions.Start(ctx, entityType)
}

// Session loads a session by ID.
func (e *Engine) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

// ResetSession returns a session to StateNew from outside a turn. It does
// not take the turn lock: a reset must land even while a slow collaborator
// call is in flight, whose result then fails the staleness check and is
// dropped.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.sessions.Reset(ctx, s); err != nil {
		return err
	}
	e.dropStatement(sessionID)
	return nil
}

// Transcript returns the stored transcript for a session in append order.
func (e *Engine) Transcript(ctx context.Context, sessionID string) ([]models.Message, error) {
	if _, err := e.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.store.GetTranscript(sessionID)
}

// Statement returns the session's in-memory categorized statement, if any.
func (e *Engine) Statement(sessionID string) *bankstmt.Statement {
	e.stmtMu.RLock()
	defer e.stmtMu.RUnlock()
	return e.statements[sessionID]
}

func (e *Engine) setStatement(sessionID string, st *bankstmt.Statement) {
	e.stmtMu.Lock()
	defer e.stmtMu.Unlock()
	e.statements[sessionID] = st
}

func (e *Engine) dropStatement(sessionID string) {
	e.stmtMu.Lock()
	defer e.stmtMu.Unlock()
	delete(e.statements, sessionID)
}

// route walks the routing tiers for typed text. Every path ends in at least
// one emitted bot message.
func (e *Engine) route(t *turn, text string) {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))

	// Reset is honored from any state, before the validators.
	if resetWords[normalized] {
		e.resetInTurn(t)
		return
	}

	if prompt, handled := session.Advance(t.s, text, e.policy); handled {
		t.sayPrompt(prompt)
		return
	}

	if cmd, ok := grammar.Match(text); ok {
		e.runCommand(t, cmd)
		return
	}

	e.classify(t, text)
}

// resetInTurn resets the session inside the current turn and greets anew.
func (e *Engine) resetInTurn(t *turn) {
	if err := e.sessions.Reset(t.ctx, t.s); err != nil {
		slog.Error("Engine.resetInTurn: reset failed", "sessionID", t.s.ID, "error", err)
		t.say("Something went wrong resetting the session. Please try again.")
		return
	}
	e.dropStatement(t.s.ID)
	t.token = t.s.Turn
	t.say("Session reset. Hi! I'm the tax assistant simulator. Say anything to begin registration, or type 'demo' to skip ahead with a test profile.")
}

// classify falls through to the external classifier; without one (or on any
// classifier failure) the turn resolves to the not-understood default.
func (e *Engine) classify(t *turn, text string) {
	if e.classifier == nil || !e.classifier.Enabled() {
		t.notUnderstood()
		return
	}

	// Window snapshot excludes the in-flight user turn so the classifier
	// sees the message once, as the query.
	window := t.window

	t.say("Processing your message...")
	res, err := e.classifier.Classify(t.ctx, text, window)
	if err != nil {
		slog.Warn("Engine.classify: classifier failed", "sessionID", t.s.ID, "error", err)
		t.notUnderstood()
		return
	}
	if e.staleTurn(t) {
		return
	}
	e.routeIntent(t, res)
}

// staleTurn reloads the session and reports whether a reset landed while a
// collaborator call was in flight. A stale turn stops emitting and discards
// its session mutations.
func (e *Engine) staleTurn(t *turn) bool {
	cur, err := e.sessions.Get(t.ctx, t.s.ID)
	if err != nil {
		slog.Error("Engine.staleTurn: reload failed", "sessionID", t.s.ID, "error", err)
		return false
	}
	if cur.Turn != t.token {
		slog.Info("Engine.staleTurn: dropping stale result", "sessionID", t.s.ID, "turn", t.token, "current", cur.Turn)
		t.stale = true
		return true
	}
	return false
}
