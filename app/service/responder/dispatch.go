package responder

import (
	"embed"
	"strings"

	"supportdesk/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Prompt is the category-independent responder instruction sent before the category one.
var Prompt = mustPrompt("responder")

// Entry is one row of the dispatch table.
type Entry struct {
	Intent conversation.Intent
	// Category instruction for the reply model
	Prompt string
	// NewReply returns an empty value of the category's structured reply shape
	NewReply func() conversation.Reply
}

var table = map[conversation.Intent]Entry{
	conversation.IntentBilling: {
		Intent:   conversation.IntentBilling,
		Prompt:   mustPrompt("billing"),
		NewReply: func() conversation.Reply { return &BillingReply{} },
	},
	conversation.IntentTechnical: {
		Intent:   conversation.IntentTechnical,
		Prompt:   mustPrompt("technical"),
		NewReply: func() conversation.Reply { return &TechnicalReply{} },
	},
	conversation.IntentAccount: {
		Intent:   conversation.IntentAccount,
		Prompt:   mustPrompt("account"),
		NewReply: func() conversation.Reply { return &AccountReply{} },
	},
	conversation.IntentFeedback: {
		Intent:   conversation.IntentFeedback,
		Prompt:   mustPrompt("feedback"),
		NewReply: func() conversation.Reply { return &FeedbackReply{} },
	},
	conversation.IntentGeneral: {
		Intent:   conversation.IntentGeneral,
		Prompt:   mustPrompt("general"),
		NewReply: func() conversation.Reply { return &GeneralReply{} },
	},
}

// Dispatch returns the table entry for intent, falling back to general.
func Dispatch(intent conversation.Intent) Entry {
	if entry, ok := table[intent]; ok {
		return entry
	}

	return table[conversation.IntentGeneral]
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the customer-facing fields of a structured reply.
func Validate(reply conversation.Reply) error {
	if err := validate.Struct(reply); err != nil {
		return oops.In("responder").Wrapf(err, "invalid structured reply")
	}

	if reply.Text() == "" {
		return oops.In("responder").Errorf("structured reply has no text")
	}

	return nil
}

func mustPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		panic(err)
	}

	return strings.TrimSpace(string(data))
}
