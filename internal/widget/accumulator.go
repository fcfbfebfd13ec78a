package widget

import "github.com/zhouzirui/z-chat/internal/model/chat"

// Phase of the reply to the latest submission.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaiting
	PhaseStreaming
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaiting:
		return "awaiting"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Accumulator merges reply fragments into the trailing model message.
// Text is the concatenation of every fragment merged so far.
type Accumulator struct {
	Phase Phase
	Text  string
}

// Begin starts a new submission.
func (a Accumulator) Begin() Accumulator {
	return Accumulator{Phase: PhaseAwaiting}
}

// Open appends the empty model message the fragments will fill. It only acts
// when awaiting, so the message is appended once per submission.
func (a Accumulator) Open(msgs chat.Transcript) (Accumulator, chat.Transcript) {
	if a.Phase != PhaseAwaiting {
		return a, msgs
	}
	a.Phase = PhaseStreaming
	return a, msgs.Append(chat.ModelMessage(""))
}

// Merge appends fragment to the reply and rewrites the trailing message.
func (a Accumulator) Merge(msgs chat.Transcript, fragment string) (Accumulator, chat.Transcript) {
	if a.Phase != PhaseStreaming {
		return a, msgs
	}
	a.Text += fragment
	return a, msgs.ReplaceLast(a.Text)
}

// Finish marks the reply complete.
func (a Accumulator) Finish() Accumulator {
	switch a.Phase {
	case PhaseAwaiting, PhaseStreaming:
		a.Phase = PhaseDone
	}
	return a
}

// Fail marks the reply failed and appends an error message after whatever
// partial reply exists.
func (a Accumulator) Fail(msgs chat.Transcript, message string) (Accumulator, chat.Transcript) {
	switch a.Phase {
	case PhaseAwaiting, PhaseStreaming:
	default:
		return a, msgs
	}
	a.Phase = PhaseFailed
	return a, msgs.Append(chat.ErrorMessage("Error: " + message))
}

// Active reports whether a reply is still expected.
func (a Accumulator) Active() bool {
	return a.Phase == PhaseAwaiting || a.Phase == PhaseStreaming
}
