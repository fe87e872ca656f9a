package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"supportdesk/app/service/classifier"
	"supportdesk/app/service/conversation"
	"supportdesk/app/service/executor"
	"supportdesk/app/service/turn"
)

// keywordLLM classifies by looking for a category word in the latest user message
// and echoes a canned reply, standing in for both model roles.
type keywordLLM struct {
	delay time.Duration
}

func (k *keywordLLM) Extract(ctx context.Context, _ string, history []conversation.Message, target any) error {
	if err := k.wait(ctx); err != nil {
		return err
	}

	text := strings.ToLower(history[len(history)-1].Content)
	intent := "gibberish"
	for _, candidate := range []string{"account", "bill", "internet", "great"} {
		if strings.Contains(text, candidate) {
			intent = map[string]string{
				"account":  "account",
				"bill":     "billing",
				"internet": "technical",
				"great":    "feedback",
			}[candidate]
			break
		}
	}

	payload, _ := json.Marshal(map[string]string{"intent": intent, "sentiment": "negative"})
	return json.Unmarshal(payload, target)
}

func (k *keywordLLM) Generate(ctx context.Context, _ string, history []conversation.Message) (string, error) {
	if err := k.wait(ctx); err != nil {
		return "", err
	}

	return "Thanks for reaching out about: " + history[len(history)-1].Content, nil
}

func (k *keywordLLM) wait(ctx context.Context) error {
	if k.delay == 0 {
		return nil
	}

	select {
	case <-time.After(k.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newService(llm *keywordLLM, timeout time.Duration) *Service {
	machine := turn.New(classifier.New(llm), llm)
	return NewService(executor.New(machine, timeout))
}

func TestProcessTurn_Scenarios(t *testing.T) {
	tests := []struct {
		text           string
		wantEscalation bool
		wantIntent     conversation.Intent
	}{
		{"I cannot log into my account", false, conversation.IntentAccount},
		{"I paid my bill but it's not showing up", false, conversation.IntentBilling},
		{"My internet is down since morning", false, conversation.IntentTechnical},
		{"Great service!", false, conversation.IntentFeedback},
		{"Random text with no meaning", false, conversation.IntentGeneral},
	}

	svc := newService(&keywordLLM{}, time.Second)

	for _, tt := range tests {
		resp := svc.ProcessTurn(context.Background(), Request{SessionID: tt.text, Text: tt.text})

		if resp.NeedsEscalation != tt.wantEscalation {
			t.Errorf("%q: escalation = %v", tt.text, resp.NeedsEscalation)
		}
		if resp.Intent != tt.wantIntent {
			t.Errorf("%q: intent = %q, want %q", tt.text, resp.Intent, tt.wantIntent)
		}
		if resp.ResponseDraft == "" {
			t.Errorf("%q: empty draft", tt.text)
		}
		if resp.Outcome != executor.OutcomeOK {
			t.Errorf("%q: outcome = %q", tt.text, resp.Outcome)
		}
	}
}

func TestProcessTurn_Escalation(t *testing.T) {
	svc := newService(&keywordLLM{}, time.Second)

	resp := svc.ProcessTurn(context.Background(), Request{Text: "This is unacceptable. I want a human now!"})

	if !resp.NeedsEscalation {
		t.Error("expected escalation")
	}
	if resp.ResponseDraft != turn.EscalationMessage {
		t.Errorf("unexpected draft %q", resp.ResponseDraft)
	}
	last := resp.Messages[len(resp.Messages)-1]
	if last.Role != conversation.RoleAssistant || last.Content != turn.EscalationMessage {
		t.Errorf("unexpected last message %+v", last)
	}
}

func TestProcessTurn_EdgeCases(t *testing.T) {
	svc := newService(&keywordLLM{}, time.Second)

	for _, text := range []string{"", "     ", "😀🙃👍", "asdkfjaskldjflkasjdf", "HELP! My account! #$%^&*"} {
		resp := svc.ProcessTurn(context.Background(), Request{SessionID: "edge", Text: text})

		if !validIntent(resp.Intent) {
			t.Errorf("%q: invalid intent %q", text, resp.Intent)
		}
		if !validSentiment(resp.Sentiment) {
			t.Errorf("%q: invalid sentiment %q", text, resp.Sentiment)
		}
		if resp.ResponseDraft == "" {
			t.Errorf("%q: empty draft", text)
		}
	}
}

func TestProcessTurn_AppendOnlyAcrossTurns(t *testing.T) {
	svc := newService(&keywordLLM{}, time.Second)
	ctx := context.Background()

	var before []conversation.Message
	for i, text := range []string{"hello", "my bill is wrong", "I am angry", "thanks"} {
		resp := svc.ProcessTurn(ctx, Request{SessionID: "s1", Text: text})

		if len(resp.Messages) != len(before)+2 {
			t.Fatalf("turn %d: expected %d messages, got %d", i, len(before)+2, len(resp.Messages))
		}
		for j := range before {
			if resp.Messages[j] != before[j] {
				t.Fatalf("turn %d: message %d changed", i, j)
			}
		}
		if resp.Messages[len(before)].Content != text || resp.Messages[len(before)].Role != conversation.RoleUser {
			t.Errorf("turn %d: unexpected user message %+v", i, resp.Messages[len(before)])
		}

		before = resp.Messages
	}
}

func TestProcessTurn_Timeout(t *testing.T) {
	svc := newService(&keywordLLM{delay: time.Second}, 20*time.Millisecond)

	resp := svc.ProcessTurn(context.Background(), Request{SessionID: "slow", Text: "my bill is wrong"})

	if resp.Outcome != executor.OutcomeTimeout {
		t.Errorf("expected timeout outcome, got %q", resp.Outcome)
	}
	if resp.ResponseDraft != executor.FallbackMessage {
		t.Errorf("unexpected draft %q", resp.ResponseDraft)
	}
	if resp.Intent != conversation.IntentGeneral || resp.Sentiment != conversation.SentimentNeutral || resp.NeedsEscalation {
		t.Errorf("unexpected fallback classification %+v", resp)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(resp.Messages))
	}
}

func TestResetSession(t *testing.T) {
	svc := newService(&keywordLLM{}, time.Second)
	ctx := context.Background()

	svc.ProcessTurn(ctx, Request{SessionID: "a", CustomerID: "cust-a", Text: "hello"})
	svc.ProcessTurn(ctx, Request{SessionID: "b", Text: "hello"})

	svc.ResetSession("a")

	resp := svc.ProcessTurn(ctx, Request{SessionID: "a", Text: "fresh start"})
	if len(resp.Messages) != 2 {
		t.Errorf("expected reset session to start empty, got %d messages", len(resp.Messages))
	}

	resp = svc.ProcessTurn(ctx, Request{SessionID: "b", Text: "still here"})
	if len(resp.Messages) != 4 {
		t.Errorf("reset must not affect other sessions, got %d messages", len(resp.Messages))
	}
}

func TestProcessTurn_CustomerIDKept(t *testing.T) {
	var seen []string
	var mu sync.Mutex

	runner := runnerFunc(func(_ context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome) {
		mu.Lock()
		seen = append(seen, state.CustomerID)
		mu.Unlock()

		next := state.Clone()
		next.AppendUser(text)
		next.AppendAssistant("ok")
		return next, executor.OutcomeOK
	})

	svc := NewService(runner)
	svc.ProcessTurn(context.Background(), Request{SessionID: "s", CustomerID: "cust-1", Text: "a"})
	svc.ProcessTurn(context.Background(), Request{SessionID: "s", CustomerID: "cust-2", Text: "b"})

	if len(seen) != 2 || seen[0] != "cust-1" || seen[1] != "cust-1" {
		t.Errorf("expected first customer id to stick, got %v", seen)
	}
}

type runnerFunc func(ctx context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome)

func (f runnerFunc) Run(ctx context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome) {
	return f(ctx, state, text)
}

func TestProcessTurn_SerializedPerSession(t *testing.T) {
	var active, maxActive atomic.Int32

	runner := runnerFunc(func(_ context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)

		next := state.Clone()
		next.AppendUser(text)
		next.AppendAssistant("ok")
		return next, executor.OutcomeOK
	})

	svc := NewService(runner)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.ProcessTurn(context.Background(), Request{SessionID: "shared", Text: "hi"})
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("expected turns of one session to be serialized, saw %d concurrent", got)
	}

	resp := svc.ProcessTurn(context.Background(), Request{SessionID: "shared", Text: "last"})
	if len(resp.Messages) != 22 {
		t.Errorf("expected 22 messages after 11 turns, got %d", len(resp.Messages))
	}
}

func TestProcessTurn_SessionsRunInParallel(t *testing.T) {
	var inside sync.WaitGroup
	inside.Add(2)
	bothInside := make(chan struct{})

	go func() {
		inside.Wait()
		close(bothInside)
	}()

	runner := runnerFunc(func(_ context.Context, state *conversation.State, text string) (*conversation.State, executor.Outcome) {
		inside.Done()

		select {
		case <-bothInside:
		case <-time.After(2 * time.Second):
		}

		next := state.Clone()
		next.AppendUser(text)
		next.AppendAssistant("ok")
		return next, executor.OutcomeOK
	})

	svc := NewService(runner)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			svc.ProcessTurn(context.Background(), Request{SessionID: id, Text: "hi"})
		}(id)
	}
	wg.Wait()

	select {
	case <-bothInside:
	default:
		t.Error("expected distinct sessions to be processed concurrently")
	}
}

func TestShutdown(t *testing.T) {
	svc := newService(&keywordLLM{}, time.Second)
	svc.ProcessTurn(context.Background(), Request{SessionID: "x", Text: "hello"})

	if err := svc.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := svc.ProcessTurn(context.Background(), Request{SessionID: "x", Text: "hello again"})
	if len(resp.Messages) != 2 {
		t.Errorf("expected sessions to be dropped, got %d messages", len(resp.Messages))
	}
}

func validIntent(intent conversation.Intent) bool {
	for _, v := range conversation.Intents {
		if v == intent {
			return true
		}
	}
	return false
}

func validSentiment(sentiment conversation.Sentiment) bool {
	for _, v := range conversation.Sentiments {
		if v == sentiment {
			return true
		}
	}
	return false
}
