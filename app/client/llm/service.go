package llm

import (
	"net/http"
	"time"

	"supportdesk/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms/openai"
)

type Service struct {
	// Classifier extracts intent and sentiment
	Classifier *Model
	// Reply writes the customer-facing answer
	Reply *Model
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	classifier, err := createModel(cfg.OpenAI.Classifier)
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "classifier model")
	}

	reply, err := createModel(cfg.OpenAI.Reply)
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "reply model")
	}

	return &Service{
		Classifier: classifier,
		Reply:      reply,
	}, nil
}

func createModel(cfg config.ModelConfig) (*Model, error) {
	client, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: 30 * time.Second,
		}),
		openai.WithCallback(LogCallbackHandler{Model: cfg.Model}),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create openai client: %w", err)
	}

	return NewModel(cfg.Model, client, cfg.Temperature), nil
}
