// Package qualify is the conversational lead qualification engine. Each buyer
// turn is appended to the lead's conversation, mined for qualification
// fields, answered, and judged for completion; a completed conversation is
// summarised once and sealed.
package qualify

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned when a turn carries no buyer text.
var ErrEmptyMessage = errors.New("qualify: message is empty")

// Stage names the model call that failed.
type Stage string

const (
	StageExtract Stage = "extract"
	StageReply   Stage = "reply"
	StageJudge   Stage = "judge"
)

// Kind classifies a model-call failure.
type Kind string

const (
	// KindUpstream covers an unreachable endpoint, a timeout or a non-2xx
	// response.
	KindUpstream Kind = "upstream"
	// KindMalformed covers output that could not be decoded into the
	// expected shape.
	KindMalformed Kind = "malformed_output"
)

// Failure is the error every model-backed component returns. The controller
// turns it into the component's degraded value.
type Failure struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("qualify: %s: %s: %v", f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func upstream(stage Stage, err error) *Failure {
	return &Failure{Stage: stage, Kind: KindUpstream, Err: err}
}

func malformed(stage Stage, err error) *Failure {
	return &Failure{Stage: stage, Kind: KindMalformed, Err: err}
}

// KindOf reports the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
