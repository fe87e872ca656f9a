package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

const (
	defaultPath    = "config.yaml"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultListen  = ":8000"
	defaultTimeout = 30 * time.Second
	defaultTemp    = 0.3

	pathEnvVariable  = "SUPPORTDESK_CONFIG"
	tokenEnvVariable = "OPENAI_API_KEY"
)

type Config struct {
	Log    Log    `yaml:"log"`
	OpenAI OpenAI `yaml:"openai"`
	Server Server `yaml:"server"`
	Turn   Turn   `yaml:"turn"`
}

type OpenAI struct {
	Classifier ModelConfig `yaml:"classifier" validate:"required"`
	Reply      ModelConfig `yaml:"reply" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required,url"`
	// OpenAI token, falls back to OPENAI_API_KEY
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.3" validate:"gte=0,lte=2"`
}

type Server struct {
	// HTTP listen address
	Listen string `yaml:"listen" example:":8000" validate:"required"`
	// Transport serving turns: http or stdio (MCP)
	Transport string `yaml:"transport" example:"http" validate:"oneof=http stdio"`
}

type Turn struct {
	// Hard wall-clock limit of a single turn
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"gt=0"`
	// Produce replies through structured extraction against the category schema
	StructuredReplies bool `yaml:"structured_replies" example:"false"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	path := os.Getenv(pathEnvVariable)
	if path == "" {
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("config").Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var result Config

	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.In("config").Errorf("failed to parse YAML config: %w", err)
	}

	applyModelDefaults(&result.OpenAI.Classifier)
	applyModelDefaults(&result.OpenAI.Reply)

	if result.Server.Listen == "" {
		result.Server.Listen = defaultListen
	}
	if result.Server.Transport == "" {
		result.Server.Transport = TransportHTTP
	}
	if result.Turn.Timeout == 0 {
		result.Turn.Timeout = defaultTimeout
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.In("config").Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyModelDefaults(cfg *ModelConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(tokenEnvVariable)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemp
	}
}
