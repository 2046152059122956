// Package classifier asks a language model whether a listing is a race bike.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults used for unset Settings fields.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultPrompt    = "Is this a race bike (koersfiets) based on the title and description? Answer only 'YES' or 'NO'."
	DefaultMaxTokens = 10
	DefaultTimeout   = 20 * time.Second
)

// ChatClient is the subset of the OpenAI client used by the classifier.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Settings tune the classification request.
type Settings struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Classifier answers YES/NO race bike questions. Without a client it
// approves everything.
type Classifier struct {
	client   ChatClient
	settings Settings
	log      *slog.Logger
}

// New creates a Classifier. client may be nil to disable classification.
func New(client ChatClient, settings Settings, log *slog.Logger) *Classifier {
	if settings.Model == "" {
		settings.Model = DefaultModel
	}
	if settings.Prompt == "" {
		settings.Prompt = DefaultPrompt
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = DefaultMaxTokens
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &Classifier{client: client, settings: settings, log: log}
}

// NewOpenAI creates a Classifier backed by the OpenAI API. An empty apiKey
// yields a disabled classifier.
func NewOpenAI(apiKey string, settings Settings, log *slog.Logger) *Classifier {
	if apiKey == "" {
		log.Warn("OPENAI_API_KEY not set, race bike classification disabled")
		return New(nil, settings, log)
	}
	return New(openai.NewClient(apiKey), settings, log)
}

// Enabled reports whether requests are actually sent.
func (c *Classifier) Enabled() bool {
	return c.client != nil
}

// IsRaceBike reports whether the model answers YES for the listing. Errors
// and a disabled classifier let the listing through.
func (c *Classifier) IsRaceBike(ctx context.Context, title, description string) bool {
	if c.client == nil {
		return true
	}

	answer, err := c.ask(ctx, title, description)
	if err != nil {
		c.log.Error("race bike classification failed, allowing listing", "title", title, "error", err)
		return true
	}
	ok := answer == "YES"
	c.log.Debug("race bike classification", "title", title, "answer", answer, "race_bike", ok)
	return ok
}

func (c *Classifier) ask(ctx context.Context, title, description string) (string, error) {
	input := "Title: " + title
	if description != "" {
		input += "\nDescription: " + description
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: c.settings.Prompt + "\n\n" + input},
		},
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.ToUpper(strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), ".!")), nil
}
