package classifier

import (
	"context"
	"log/slog"

	"supportdesk/app/service/conversation"

	_ "embed"

	"github.com/samber/oops"
)

//go:embed classifier_prompt.txt
var Prompt string

// Extractor fills target from the JSON the model returns for instruction and history.
type Extractor interface {
	Extract(ctx context.Context, instruction string, history []conversation.Message, target any) error
}

type Result struct {
	Intent    conversation.Intent
	Sentiment conversation.Sentiment
}

// rawResult is what the model is asked to return. Every field may be missing.
type rawResult struct {
	Intent          string `json:"intent"`
	Sentiment       string `json:"sentiment"`
	NeedsEscalation bool   `json:"needs_escalation"`
}

type Classifier struct {
	extractor Extractor
	prompt    string
}

func New(extractor Extractor) *Classifier {
	return &Classifier{
		extractor: extractor,
		prompt:    Prompt,
	}
}

// Classify returns a validated intent and sentiment for the conversation.
// Unknown or missing values become general/neutral; extraction errors are returned.
func (c *Classifier) Classify(ctx context.Context, history []conversation.Message) (Result, error) {
	var raw rawResult
	if err := c.extractor.Extract(ctx, c.prompt, history, &raw); err != nil {
		return Result{}, oops.In("classifier").Wrapf(err, "extract classification")
	}

	result := Result{
		Intent:    conversation.ParseIntent(raw.Intent),
		Sentiment: conversation.ParseSentiment(raw.Sentiment),
	}

	if string(result.Intent) != raw.Intent || string(result.Sentiment) != raw.Sentiment {
		slog.DebugContext(ctx, "Classification coerced to defaults",
			"raw_intent", raw.Intent,
			"raw_sentiment", raw.Sentiment,
			"intent", result.Intent,
			"sentiment", result.Sentiment,
		)
	}

	// The model's own escalation opinion does not route the turn.
	if raw.NeedsEscalation {
		slog.DebugContext(ctx, "Model suggested escalation", "intent", result.Intent)
	}

	return result, nil
}
