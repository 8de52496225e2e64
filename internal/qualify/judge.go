package qualify

import (
	"context"
	"errors"

	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/models"
)

// Judge decides whether a conversation has gathered enough to stop. The
// policy itself lives in the prompt: budget, timeline and property type
// known, and the buyer confirming they have no more questions.
type Judge struct {
	client generation.Client
}

// NewJudge returns a Judge backed by client.
func NewJudge(client generation.Client) *Judge {
	return &Judge{client: client}
}

type judgement struct {
	ChatCompleted *bool `json:"chat_completed"`
}

// Complete returns the model's verdict. A missing chat_completed key is a
// malformed-output failure.
func (j *Judge) Complete(ctx context.Context, l *models.Lead) (bool, error) {
	prompt, err := render(judgePrompt, l)
	if err != nil {
		return false, malformed(StageJudge, err)
	}
	raw, err := j.client.Generate(ctx, generation.Request{Prompt: prompt, Temperature: 0})
	if err != nil {
		return false, upstream(StageJudge, err)
	}

	var out judgement
	if err := DecodeObject(raw, &out); err != nil {
		return false, malformed(StageJudge, err)
	}
	if out.ChatCompleted == nil {
		return false, malformed(StageJudge, errors.New("missing chat_completed"))
	}
	return *out.ChatCompleted, nil
}
