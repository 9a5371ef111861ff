package interview

import (
	"context"
	"encoding/json"

	"github.com/danmuck/briefctl/internal/briefing"
	"github.com/danmuck/briefctl/internal/observability"
	"github.com/danmuck/briefctl/internal/questions"
	"github.com/danmuck/briefctl/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/danmuck/briefctl/internal/interview"

// Engine serves interview steps for any number of concurrent sessions.
type Engine struct {
	tree     *questions.Tree
	sessions *sessions
	store    store.Store
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStore persists answers and briefings. Persistence failures are logged
// and never fail a step.
func WithStore(st store.Store) Option {
	return func(e *Engine) { e.store = st }
}

// WithLogger overrides the global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an engine over tree.
func NewEngine(tree *questions.Tree, opts ...Option) *Engine {
	e := &Engine{
		tree:     tree,
		sessions: newSessions(),
		logger:   log.Logger,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tree returns the question tree in use.
func (e *Engine) Tree() *questions.Tree {
	return e.tree
}

// ActiveSessions reports sessions currently held in memory.
func (e *Engine) ActiveSessions() int {
	return e.sessions.count()
}

// Next records the answer to the current node and returns the following step.
func (e *Engine) Next(ctx context.Context, req NextRequest) (NextResponse, error) {
	id := req.SessionID
	if id == "" {
		return NextResponse{}, ErrMissingSessionID
	}
	ctx, span := e.tracer.Start(ctx, "interview.Next", trace.WithAttributes(attribute.String("session_id", id)))
	defer span.End()

	observability.SetActiveSessions(e.sessions.ensure(id))

	currentID := ""
	if req.CurrentID != nil {
		currentID = *req.CurrentID
	}

	if req.Answer != nil {
		if node, ok := e.tree.Get(currentID); ok {
			snapshot := e.sessions.append(id, Answer{ID: currentID, Question: node.Text, Answer: *req.Answer})
			e.persistAnswers(ctx, id, snapshot)
		}
	}

	resp, outcome := e.step(currentID, req.Answer)
	span.SetAttributes(attribute.String("outcome", outcome))
	observability.RecordInterviewStep(outcome)
	e.logger.Debug().
		Str("session_id", id).
		Str("current_id", currentID).
		Str("outcome", outcome).
		Bool("done", resp.Done).
		Msg("interview step")
	return resp, nil
}

func (e *Engine) step(currentID string, answer *string) (NextResponse, string) {
	if currentID == "" {
		start := e.tree.Start()
		return NextResponse{Message: start.Text, NextID: strPtr(start.ID), Done: false}, OutcomeStart
	}

	curr, ok := e.tree.Get(currentID)
	if !ok {
		return NextResponse{Message: MsgInvalidStep, Done: true}, OutcomeInvalidStep
	}

	nextID := questions.ChooseNext(curr, answer)
	if nextID == "" {
		return NextResponse{Message: MsgFinished, Done: true}, OutcomeFinished
	}

	next, ok := e.tree.Get(nextID)
	if !ok {
		return NextResponse{Message: MsgMisconfigured, Done: true}, OutcomeMisconfigured
	}

	done := nextID == questions.EndID
	outcome := OutcomeQuestion
	if done {
		outcome = OutcomeEnd
	}
	return NextResponse{Message: next.Text, NextID: strPtr(nextID), Done: done}, outcome
}

// Answers returns the answers recorded for a session.
func (e *Engine) Answers(sessionID string) []Answer {
	return e.sessions.get(sessionID)
}

// Briefing builds the markdown briefing from the session's answers and
// persists it when a store is configured.
func (e *Engine) Briefing(ctx context.Context, sessionID string) (string, error) {
	id := sessionID
	if id == "" {
		return "", ErrMissingSessionID
	}
	ctx, span := e.tracer.Start(ctx, "interview.Briefing", trace.WithAttributes(attribute.String("session_id", id)))
	defer span.End()

	answers := e.sessions.get(id)
	items := make([]briefing.Item, 0, len(answers))
	for _, a := range answers {
		items = append(items, briefing.Item{Question: a.Question, Answer: a.Answer})
	}
	md := briefing.Markdown(id, items)
	span.SetAttributes(attribute.Int("answers", len(items)))

	if e.store != nil {
		if err := e.store.Upsert(ctx, id, nil, &md); err != nil {
			observability.RecordStoreError("briefing")
			e.logger.Error().Err(err).Str("session_id", id).Msg("persist briefing failed")
		}
	}
	return md, nil
}

// Reset forgets the in-memory answers of a session. Persisted history is kept.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	id := sessionID
	if id == "" {
		return ErrMissingSessionID
	}
	_, span := e.tracer.Start(ctx, "interview.Reset", trace.WithAttributes(attribute.String("session_id", id)))
	defer span.End()

	existed, remaining := e.sessions.drop(id)
	observability.SetActiveSessions(remaining)
	e.logger.Info().Str("session_id", id).Bool("existed", existed).Msg("interview reset")
	return nil
}

func (e *Engine) persistAnswers(ctx context.Context, sessionID string, answers []Answer) {
	if e.store == nil {
		return
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		e.logger.Error().Err(err).Str("session_id", sessionID).Msg("encode answers failed")
		return
	}
	if err := e.store.Upsert(ctx, sessionID, payload, nil); err != nil {
		observability.RecordStoreError("answers")
		e.logger.Error().Err(err).Str("session_id", sessionID).Msg("persist answers failed")
	}
}

func strPtr(s string) *string {
	return &s
}
