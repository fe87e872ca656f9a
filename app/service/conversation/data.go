package conversation

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Intent string

const (
	IntentBilling   Intent = "billing"
	IntentTechnical Intent = "technical"
	IntentAccount   Intent = "account"
	IntentFeedback  Intent = "feedback"
	IntentGeneral   Intent = "general"
)

var Intents = []Intent{IntentBilling, IntentTechnical, IntentAccount, IntentFeedback, IntentGeneral}

// ParseIntent maps raw model output onto the intent enum. Anything unknown is general.
func ParseIntent(raw string) Intent {
	value := Intent(strings.ToLower(strings.TrimSpace(raw)))
	for _, intent := range Intents {
		if intent == value {
			return intent
		}
	}

	return IntentGeneral
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentiment maps raw model output onto the sentiment enum. Anything unknown is neutral.
func ParseSentiment(raw string) Sentiment {
	value := Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	for _, sentiment := range Sentiments {
		if sentiment == value {
			return sentiment
		}
	}

	return SentimentNeutral
}

// Reply is a category-specific structured reply that can be shown to the customer.
type Reply interface {
	Text() string
}
