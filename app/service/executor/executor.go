package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"supportdesk/app/service/conversation"
	"supportdesk/app/service/turn"

	"github.com/samber/oops"
)

const (
	FallbackMessage = "Sorry, I'm taking too long to respond. Please try again."
	DefaultTimeout  = 30 * time.Second
)

var ErrPanic = errors.New("turn panicked")

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeTimeout Outcome = "timeout"
	OutcomeFailure Outcome = "failure"
)

type Machine interface {
	Run(ctx context.Context, state *conversation.State) (turn.Step, error)
}

// Executor runs one turn under a deadline and always returns a well-formed state.
type Executor struct {
	machine Machine
	timeout time.Duration
}

func New(machine Machine, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Executor{
		machine: machine,
		timeout: timeout,
	}
}

type result struct {
	state *conversation.State
	step  turn.Step
	err   error
}

// Run appends text as a user message to a copy of state and runs the turn on it.
// The input state is never modified. A result arriving after the deadline is dropped.
func (e *Executor) Run(ctx context.Context, state *conversation.State, text string) (*conversation.State, Outcome) {
	start := time.Now()

	base := state.Clone()
	base.AppendUser(text)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// settled is flipped exactly once, by whichever side finishes first.
	var settled atomic.Bool
	done := make(chan result, 1)

	go e.runMachine(ctx, base.Clone(), &settled, done)

	var res result

	select {
	case res = <-done:
	case <-ctx.Done():
		if settled.CompareAndSwap(false, true) {
			res = result{err: ctx.Err()}
		} else {
			// the machine settled between the deadline firing and us noticing
			res = <-done
		}
	}

	if res.err == nil {
		res.err = checkTurn(base, res.state)
	}

	if res.err != nil {
		outcome := OutcomeFailure
		if errors.Is(res.err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}

		slog.WarnContext(ctx, "Turn failed, using fallback reply",
			"outcome", outcome,
			"step", res.step,
			"duration", time.Since(start),
			"error", res.err,
		)

		return fallback(base), outcome
	}

	slog.InfoContext(ctx, "Processed turn",
		"step", res.step,
		"intent", res.state.Intent,
		"sentiment", res.state.Sentiment,
		"needs_escalation", res.state.NeedsEscalation,
		"duration", time.Since(start),
	)

	return res.state, OutcomeOK
}

func (e *Executor) runMachine(ctx context.Context, work *conversation.State, settled *atomic.Bool, done chan<- result) {
	res := result{state: work}

	defer func() {
		if r := recover(); r != nil {
			res.err = oops.In("executor").With("panic", r).Wrapf(ErrPanic, "%v", r)
		}

		if !settled.CompareAndSwap(false, true) {
			slog.Debug("Discarded late turn result", "step", res.step, "error", res.err)
			return
		}

		done <- res
	}()

	res.step, res.err = e.machine.Run(ctx, work)
}

// checkTurn verifies that out is base plus exactly one assistant reply.
func checkTurn(base, out *conversation.State) error {
	if out.History.Len() != base.History.Len()+1 {
		return oops.In("executor").Errorf("turn appended %d messages, want 1", out.History.Len()-base.History.Len())
	}

	msgs := out.History.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != conversation.RoleAssistant || last.Content == "" || last.Content != out.ResponseDraft {
		return oops.In("executor").Errorf("turn did not finish with a non-empty assistant reply")
	}

	if conversation.ParseIntent(string(out.Intent)) != out.Intent ||
		conversation.ParseSentiment(string(out.Sentiment)) != out.Sentiment {
		return oops.In("executor").Errorf("turn produced unknown classification %q/%q", out.Intent, out.Sentiment)
	}

	return nil
}

func fallback(base *conversation.State) *conversation.State {
	state := base.Clone()

	state.AppendAssistant(FallbackMessage)
	state.Intent = conversation.IntentGeneral
	state.Sentiment = conversation.SentimentNeutral
	state.NeedsEscalation = false
	state.Reply = nil

	return state
}
