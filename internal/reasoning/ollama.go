package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/types"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5:7b"

	// Low temperature keeps the structured outputs stable across retries.
	defaultTemperature = 0.3
	defaultTopP        = 0.9
)

// OllamaGateway implements Gateway against a local Ollama server.
//
// Ollama has no native JSON mode, so every call goes through DecodeObject to
// strip markdown fencing and chatter before unmarshaling.
type OllamaGateway struct {
	client *ollama.LLM
	model  string
	logger *slog.Logger
}

// OllamaOption configures an OllamaGateway.
type OllamaOption func(*ollamaSettings)

type ollamaSettings struct {
	host   string
	model  string
	logger *slog.Logger
}

// WithHost sets the Ollama server URL.
func WithHost(host string) OllamaOption {
	return func(s *ollamaSettings) { s.host = host }
}

// WithModel sets the model name.
func WithModel(model string) OllamaOption {
	return func(s *ollamaSettings) { s.model = model }
}

// WithLogger sets the logger for reasoning calls.
func WithLogger(logger *slog.Logger) OllamaOption {
	return func(s *ollamaSettings) { s.logger = logger }
}

// NewOllamaGateway creates a reasoning gateway backed by Ollama.
func NewOllamaGateway(opts ...OllamaOption) (*OllamaGateway, error) {
	settings := &ollamaSettings{
		host:   defaultOllamaHost,
		model:  defaultOllamaModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(settings)
	}

	client, err := ollama.New(
		ollama.WithServerURL(settings.host),
		ollama.WithModel(settings.model),
	)
	if err != nil {
		return nil, translateCallError(err)
	}

	return &OllamaGateway{
		client: client,
		model:  settings.model,
		logger: settings.logger.With("component", "reasoning"),
	}, nil
}

// SelectVariant implements Gateway.
func (g *OllamaGateway) SelectVariant(ctx context.Context, productName string, byVendor map[string][]catalog.Variant, hint *collector.Selection, requirement string) (*Judgment, error) {
	prompt := buildSelectPrompt(productName, byVendor, hint, requirement)

	raw, err := g.call(ctx, selectSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	judgment, err := DecodeObject[Judgment](raw)
	if err != nil {
		return nil, invalidOutput(fmt.Sprintf("variant selection for %q did not return valid JSON", productName), err)
	}
	judgment.ProductName = productName
	judgment.Vendor = catalog.NormalizeName(judgment.Vendor)
	judgment.Variant.Vendor = judgment.Vendor
	judgment.Variant.ProductName = productName

	if err := judgment.Validate(); err != nil {
		return nil, invalidOutput(fmt.Sprintf("variant selection for %q is malformed: %v", productName, err), nil)
	}

	g.logger.Debug("variant selected",
		"product", productName,
		"vendor", judgment.Vendor,
		"confidence", judgment.Confidence)

	return &judgment, nil
}

// ClassifyFeedback implements Gateway.
func (g *OllamaGateway) ClassifyFeedback(ctx context.Context, userInput string, cartProducts []string) (*Intent, error) {
	prompt := buildFeedbackPrompt(userInput, cartProducts)

	raw, err := g.call(ctx, feedbackSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	intent, err := DecodeObject[Intent](raw)
	if err != nil {
		return nil, invalidOutput("feedback classification did not return valid JSON", err)
	}

	result := sanitizeIntent(&intent, cartProducts)

	g.logger.Debug("feedback classified",
		"action", result.Action,
		"targets", result.Targets)

	return result, nil
}

// ParseItems implements Gateway.
func (g *OllamaGateway) ParseItems(ctx context.Context, userInput string) ([]plan.RequestItem, error) {
	prompt := buildParsePrompt(userInput)

	raw, err := g.call(ctx, parseSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := DecodeObject[parsedList](raw)
	if err != nil {
		return nil, invalidOutput("item parsing did not return valid JSON", err)
	}

	items := parsed.toRequestItems()
	if len(items) == 0 {
		return nil, invalidOutput("item parsing returned no usable items", nil)
	}

	return items, nil
}

// call runs one system+user exchange and returns the raw completion text.
func (g *OllamaGateway) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := g.client.GenerateContent(ctx, messages,
		llms.WithTemperature(defaultTemperature),
		llms.WithTopP(defaultTopP),
	)
	if err != nil {
		return "", translateCallError(err)
	}

	if len(resp.Choices) == 0 {
		return "", types.NewRetryableError(types.REASONING_CALL_FAILED, "model returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", types.NewRetryableError(types.REASONING_CALL_FAILED, "model returned empty content")
	}

	return content, nil
}

// translateCallError classifies transport-level failures. Context
// cancellation passes through untouched so the caller can distinguish
// shutdown from model trouble; everything else at this layer is transient.
func translateCallError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapRetryableError(types.REASONING_TIMEOUT, "reasoning call timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.WrapRetryableError(types.REASONING_TIMEOUT, "reasoning call timed out", err)
	}

	return types.WrapRetryableError(types.REASONING_CALL_FAILED, "reasoning call failed", err)
}
