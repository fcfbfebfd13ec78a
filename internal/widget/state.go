package widget

import "github.com/zhouzirui/z-chat/internal/model/chat"

// State is everything one page view shows. Handlers never modify a State in
// place; Reduce returns the next snapshot.
type State struct {
	Messages        chat.Transcript
	Input           string
	InputSeq        uint64
	IsLoading       bool
	IsRecording     bool
	IsSpeechEnabled bool
	Error           string

	HasSession           bool
	RecognitionSupported bool

	Stream Accumulator
}

// NewState returns the state of a freshly mounted view: the greeting, speech
// output on, no session yet.
func NewState(greeting string, recognitionSupported bool) State {
	return State{
		Messages:             chat.NewTranscript(greeting),
		IsSpeechEnabled:      true,
		RecognitionSupported: recognitionSupported,
	}
}
