// Package generator issues completion calls and collects them into
// comparison tables. Every call is fail-soft: failures come back as
// models.Failure results, never as errors or panics.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
	"promptgrid/internal/provider"
)

// Generator dispatches requests to the completion client.
type Generator struct {
	registry  *provider.Registry
	completer provider.Completer
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger overrides the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New constructs a generator backed by the model catalogue and completion client.
func New(registry *provider.Registry, completer provider.Completer, opts ...Option) *Generator {
	g := &Generator{
		registry:  registry,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate performs a single completion call.
func (g *Generator) Generate(ctx context.Context, req models.Request) (result models.Result) {
	start := time.Now()
	logger := g.logger.With(
		"provider", g.providerName(),
		"model", req.Model,
		"temperature", req.Params.Temperature,
		"max_tokens", req.Params.MaxTokens,
		"presence_penalty", req.Params.PresencePenalty,
		"frequency_penalty", req.Params.FrequencyPenalty,
	)

	defer func() {
		if r := recover(); r != nil {
			result = models.Failure(fmt.Sprintf("completion panicked: %v", r))
		}
		if result.OK() {
			logger.Info("completion succeeded", "latency_ms", time.Since(start).Milliseconds())
		} else {
			logger.Warn("completion failed", "latency_ms", time.Since(start).Milliseconds(), "error", result.Reason())
		}
	}()

	if g.completer == nil {
		return models.Failure("completion client is not configured")
	}

	if g.registry != nil {
		model, err := g.registry.LookupModel(req.Model)
		if err != nil {
			return models.Failure(err.Error())
		}
		req.Model = model.ID
	}

	completion, err := g.completer.Complete(ctx, req)
	if err != nil {
		return models.Failure(err.Error())
	}
	if completion == nil {
		return models.Failure("upstream provider returned an empty response")
	}

	logger.Debug("completion usage",
		"finish_reason", completion.FinishReason,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)
	return models.Success(completion.Text)
}

func (g *Generator) providerName() string {
	if g.completer == nil {
		return "none"
	}
	return g.completer.Name()
}

// Grid runs DefaultGrid in order with fixed prompts and no stop sequences.
// It always returns len(DefaultGrid) rows.
func (g *Generator) Grid(ctx context.Context, model, system, user string) []models.Row {
	return g.run(ctx, model, system, user, DefaultGrid[:], nil)
}

// Sweep runs every combination of s in order.
func (g *Generator) Sweep(ctx context.Context, model, system, user string, s Sweep) []models.Row {
	return g.run(ctx, model, system, user, s.Combinations(), prompt.ParseStopSequences(s.Stop))
}

// run issues one call per combination, strictly one after another.
func (g *Generator) run(ctx context.Context, model, system, user string, combos []models.Params, stop []string) []models.Row {
	messages := prompt.BuildMessages(system, user)
	rows := make([]models.Row, 0, len(combos))
	for _, params := range combos {
		req := models.Request{
			Model:    model,
			Messages: messages,
			Params:   params,
			Stop:     stop,
		}
		rows = append(rows, models.Row{
			Params: params,
			Stop:   stop,
			Result: g.Generate(ctx, req),
		})
	}
	return rows
}
