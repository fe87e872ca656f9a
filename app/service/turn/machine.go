package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"supportdesk/app/service/classifier"
	"supportdesk/app/service/conversation"
	"supportdesk/app/service/escalation"
	"supportdesk/app/service/responder"
	"supportdesk/app/util/mylog"

	"github.com/samber/oops"
)

const EscalationMessage = "Connecting you with a human support agent."

type Step string

const (
	StepClassify Step = "classify"
	StepRespond  Step = "respond"
	StepEscalate Step = "escalate"

	stepEnd Step = ""
)

type Classifier interface {
	Classify(ctx context.Context, history []conversation.Message) (classifier.Result, error)
}

// Generator produces a free-text reply for instruction and history.
type Generator interface {
	Generate(ctx context.Context, instruction string, history []conversation.Message) (string, error)
}

type node func(ctx context.Context, state *conversation.State) (Step, error)

// Machine runs one turn: classify, then respond or escalate.
type Machine struct {
	classifier Classifier
	generator  Generator
	// set when replies are produced as structured values
	extractor classifier.Extractor

	nodes map[Step]node
}

type Option func(*Machine)

// WithStructuredReplies makes the respond step extract the category reply schema and render it.
func WithStructuredReplies(extractor classifier.Extractor) Option {
	return func(m *Machine) {
		m.extractor = extractor
	}
}

func New(cls Classifier, generator Generator, opts ...Option) *Machine {
	m := &Machine{
		classifier: cls,
		generator:  generator,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.nodes = map[Step]node{
		StepClassify: m.classify,
		StepRespond:  m.respond,
		StepEscalate: m.escalate,
	}

	return m
}

// Run drives state from classify to a terminal step and returns that step.
// The state's last message must be the user's message for this turn.
func (m *Machine) Run(ctx context.Context, state *conversation.State) (Step, error) {
	step := StepClassify

	for {
		next, err := m.nodes[step](ctx, state)
		if err != nil {
			return step, oops.In("turn").With("step", step).Wrapf(err, "%s step", step)
		}

		if next == stepEnd {
			return step, nil
		}

		step = next
	}
}

func (m *Machine) classify(ctx context.Context, state *conversation.State) (Step, error) {
	keyword := escalation.Match(state.LatestUserText())

	result, err := m.classifier.Classify(ctx, state.History.Messages())
	if err != nil {
		return stepEnd, err
	}

	state.Intent = result.Intent
	state.Sentiment = result.Sentiment
	state.NeedsEscalation = keyword != ""
	state.Reply = nil

	slog.DebugContext(ctx, "Classified turn",
		"intent", state.Intent,
		"sentiment", state.Sentiment,
		"escalation_keyword", keyword,
	)

	if state.NeedsEscalation {
		return StepEscalate, nil
	}

	return StepRespond, nil
}

func (m *Machine) respond(ctx context.Context, state *conversation.State) (Step, error) {
	entry := responder.Dispatch(state.Intent)

	instruction := strings.Join([]string{
		responder.Prompt,
		entry.Prompt,
		fmt.Sprintf("Intent: %s\nSentiment: %s", state.Intent, state.Sentiment),
	}, "\n\n")
	history := state.History.Messages()

	var text string

	if m.extractor != nil {
		reply := entry.NewReply()
		if err := m.extractor.Extract(ctx, instruction, history, reply); err != nil {
			return stepEnd, err
		}

		if err := responder.Validate(reply); err != nil {
			return stepEnd, err
		}

		text = reply.Text()
		state.Reply = reply
	} else {
		generated, err := m.generator.Generate(ctx, instruction, history)
		if err != nil {
			return stepEnd, err
		}

		text = strings.TrimSpace(generated)
		if text == "" {
			return stepEnd, oops.In("turn").Errorf("reply model returned empty text")
		}
	}

	state.AppendAssistant(text)

	return stepEnd, nil
}

func (m *Machine) escalate(ctx context.Context, state *conversation.State) (Step, error) {
	state.AppendAssistant(EscalationMessage)

	slog.InfoContext(ctx, "Turn escalated to a human agent",
		"customer_id", state.CustomerID,
		"intent", state.Intent,
		"text", state.LatestUserText(),
		mylog.TelegramKey, true,
	)

	return stepEnd, nil
}
