package session

import (
	"context"
	"log/slog"
	"sync"

	"supportdesk/app/client/llm"
	"supportdesk/app/config"
	"supportdesk/app/service/classifier"
	"supportdesk/app/service/conversation"
	"supportdesk/app/service/executor"
	"supportdesk/app/service/turn"

	"github.com/samber/do"
)

// DefaultSessionID is used when the caller does not identify a session.
const DefaultSessionID = "default"

var _ do.Shutdownable = (*Service)(nil)

type Runner interface {
	Run(ctx context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome)
}

type Request struct {
	SessionID  string
	CustomerID string
	Text       string
}

type Response struct {
	SessionID       string
	Messages        []conversation.Message
	ResponseDraft   string
	Intent          conversation.Intent
	Sentiment       conversation.Sentiment
	NeedsEscalation bool
	Outcome         executor.Outcome
}

// entry owns the state of one conversation. mu is held for a whole turn.
type entry struct {
	mu    sync.Mutex
	state *conversation.State
}

type Service struct {
	runner Runner

	mu       sync.Mutex
	sessions map[string]*entry
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	llmSvc := do.MustInvoke[*llm.Service](di)

	var opts []turn.Option
	if cfg.Turn.StructuredReplies {
		opts = append(opts, turn.WithStructuredReplies(llmSvc.Reply))
	}

	machine := turn.New(classifier.New(llmSvc.Classifier), llmSvc.Reply, opts...)

	return NewService(executor.New(machine, cfg.Turn.Timeout)), nil
}

func NewService(runner Runner) *Service {
	return &Service{
		runner:   runner,
		sessions: make(map[string]*entry),
	}
}

// ProcessTurn runs one turn of the session. Turns of the same session are serialized.
func (s *Service) ProcessTurn(ctx context.Context, req Request) Response {
	sessionID := normalizeID(req.SessionID)
	e := s.entry(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.CustomerID == "" {
		e.state.CustomerID = req.CustomerID
	}

	state, outcome := s.runner.Run(ctx, e.state, req.Text)
	e.state = state

	return Response{
		SessionID:       sessionID,
		Messages:        state.History.Messages(),
		ResponseDraft:   state.ResponseDraft,
		Intent:          state.Intent,
		Sentiment:       state.Sentiment,
		NeedsEscalation: state.NeedsEscalation,
		Outcome:         outcome,
	}
}

// ResetSession discards the conversation, waiting for an in-flight turn to finish first.
func (s *Service) ResetSession(sessionID string) {
	sessionID = normalizeID(sessionID)
	e := s.entry(sessionID)

	e.mu.Lock()
	e.state = conversation.NewState("")
	e.mu.Unlock()

	slog.Info("Session reset", "session_id", sessionID)
}

func (s *Service) entry(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{state: conversation.NewState("")}
		s.sessions[sessionID] = e
	}

	return e
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("Dropping sessions", "count", len(s.sessions))
	s.sessions = make(map[string]*entry)

	return nil
}

func normalizeID(sessionID string) string {
	if sessionID == "" {
		return DefaultSessionID
	}

	return sessionID
}
