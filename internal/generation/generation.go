// Package generation talks to the text-generation service that backs field
// extraction, completion judgement and reply writing.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/leadyard/internal/config"
)

// Request is a single prompt sent to the generation service.
type Request struct {
	Prompt      string
	Temperature float64
	// Timeout bounds this call; zero uses the client's default.
	Timeout time.Duration
}

// Client turns a prompt into free text.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts an ordinary function to Client.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New builds the Client selected by cfg.Backend.
func New(ctx context.Context, cfg config.GenerationConfig) (Client, error) {
	switch cfg.Backend {
	case config.BackendOllama, "":
		return NewOllamaClient(cfg.Endpoint, cfg.Model, cfg.Timeout), nil
	case config.BackendOpenAI:
		return NewOpenAIClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("generation: unsupported backend %q", cfg.Backend)
	}
}

// withTimeout derives a context bounded by the request timeout, or by def
// when the request sets none.
func withTimeout(ctx context.Context, req Request, def time.Duration) (context.Context, context.CancelFunc) {
	d := req.Timeout
	if d <= 0 {
		d = def
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
