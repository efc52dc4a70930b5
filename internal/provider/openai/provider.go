package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"promptgrid/internal/config"
	"promptgrid/internal/models"
)

const userAgent = "promptgrid/0.1"

// Provider implements provider.Completer for OpenAI-compatible APIs.
type Provider struct {
	name   string
	client *goopenai.Client
}

// New creates a new OpenAI provider. The API key and headers are fixed for
// the lifetime of the provider.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, config.ErrMissingCredential
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	headers["User-Agent"] = userAgent
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	withHeaders := *client
	withHeaders.Transport = &headerTransport{base: client.Transport, headers: headers}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = &withHeaders

	return &Provider{
		name:   name,
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Complete performs one chat completion call and returns the first choice.
func (p *Provider) Complete(ctx context.Context, req models.Request) (*models.Completion, error) {
	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, payload)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("openai response did not include choices")
	}

	choice := resp.Choices[0]
	return &models.Completion{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func buildChatRequest(req models.Request) (goopenai.ChatCompletionRequest, error) {
	if strings.TrimSpace(req.Model) == "" {
		return goopenai.ChatCompletionRequest{}, errors.New("model must not be empty")
	}
	if len(req.Messages) == 0 {
		return goopenai.ChatCompletionRequest{}, errors.New("at least one message is required")
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			return goopenai.ChatCompletionRequest{}, fmt.Errorf("%s message content must not be empty", msg.Role)
		}
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	var stop []string
	if len(req.Stop) > 0 {
		stop = req.Stop
	}

	return goopenai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		Temperature:      temperature(req.Params.Temperature),
		MaxTokens:        req.Params.MaxTokens,
		PresencePenalty:  float32(req.Params.PresencePenalty),
		FrequencyPenalty: float32(req.Params.FrequencyPenalty),
		Stop:             stop,
	}, nil
}

// temperature maps 0 to the smallest positive float32: the client drops a
// zero temperature from the payload and the API would then default to 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return base.RoundTrip(req)
}
