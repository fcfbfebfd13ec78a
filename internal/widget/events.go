package widget

import (
	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/ai"
)

// Event is something that happened to a view: user input, a stream step or a
// speech notification.
type Event interface {
	event()
}

// InputChanged carries the compose field's new value. Seq numbers the page's
// edits so the page can tell its own stale echoes from server changes.
type InputChanged struct {
	Text string
	Seq  uint64
}

// Submitted is the send action.
type Submitted struct{}

// SessionReady reports that the conversation session was created.
type SessionReady struct {
	session *ai.Session
}

// SessionFailed reports that the conversation session could not be created.
type SessionFailed struct{ Message string }

// StreamOpened reports that the reply stream is open.
type StreamOpened struct{}

// FragmentReceived carries one reply fragment.
type FragmentReceived struct {
	Text string

	consumed chan struct{}
}

// StreamEnded reports normal completion of the reply.
type StreamEnded struct{}

// StreamFailed reports a terminal stream error.
type StreamFailed struct{ Message string }

// RecordingToggled is the mic button.
type RecordingToggled struct{}

// TranscriptReceived carries recognized speech.
type TranscriptReceived struct {
	Transcript string
	IsFinal    bool
}

// RecognitionFailed carries a recognizer error code.
type RecognitionFailed struct{ Code speech.ErrorCode }

// RecognitionEnded reports that capture is over, however it ended.
type RecognitionEnded struct{}

// SpeechToggled is the speaker button.
type SpeechToggled struct{}

func (InputChanged) event()       {}
func (Submitted) event()          {}
func (SessionReady) event()       {}
func (SessionFailed) event()      {}
func (StreamOpened) event()       {}
func (FragmentReceived) event()   {}
func (StreamEnded) event()        {}
func (StreamFailed) event()       {}
func (RecordingToggled) event()   {}
func (TranscriptReceived) event() {}
func (RecognitionFailed) event()  {}
func (RecognitionEnded) event()   {}
func (SpeechToggled) event()      {}

// Effect is work the controller performs after a state change.
type Effect interface {
	effect()
}

// OpenStream sends Text through the session and streams the reply.
type OpenStream struct{ Text string }

// StartRecognition begins speech capture.
type StartRecognition struct{}

// StopRecognition asks the recognizer to finish.
type StopRecognition struct{}

// Speak reads Text aloud.
type Speak struct{ Text string }

// SetSpeechEnabled gates future Speak effects.
type SetSpeechEnabled struct{ Enabled bool }

func (OpenStream) effect()       {}
func (StartRecognition) effect() {}
func (StopRecognition) effect()  {}
func (Speak) effect()            {}
func (SetSpeechEnabled) effect() {}
