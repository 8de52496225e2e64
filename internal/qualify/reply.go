package qualify

import (
	"context"
	"errors"
	"strings"

	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/models"
)

// FallbackReply is sent when no reply could be generated.
const FallbackReply = "I'm experiencing a temporary issue. Please try again shortly."

// DefaultReplyTemperature keeps replies natural but on-script.
const DefaultReplyTemperature = 0.3

// ReplyGenerator writes the next assistant utterance.
type ReplyGenerator struct {
	client      generation.Client
	temperature float64
}

// NewReplyGenerator returns a ReplyGenerator. A temperature <= 0 uses
// DefaultReplyTemperature.
func NewReplyGenerator(client generation.Client, temperature float64) *ReplyGenerator {
	if temperature <= 0 {
		temperature = DefaultReplyTemperature
	}
	return &ReplyGenerator{client: client, temperature: temperature}
}

// Reply returns the trimmed model response. Blank output is a
// malformed-output failure.
func (r *ReplyGenerator) Reply(ctx context.Context, l *models.Lead) (string, error) {
	prompt, err := render(replyPrompt, l)
	if err != nil {
		return "", malformed(StageReply, err)
	}
	raw, err := r.client.Generate(ctx, generation.Request{Prompt: prompt, Temperature: r.temperature})
	if err != nil {
		return "", upstream(StageReply, err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", malformed(StageReply, errors.New("empty reply"))
	}
	return text, nil
}
