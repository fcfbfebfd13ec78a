package speech

import "context"

// ErrorCode is the fixed vocabulary a recognizer uses to report failures.
type ErrorCode string

const (
	ErrNoSpeech             ErrorCode = "no-speech"
	ErrAborted              ErrorCode = "aborted"
	ErrAudioCapture         ErrorCode = "audio-capture"
	ErrNetwork              ErrorCode = "network"
	ErrNotAllowed           ErrorCode = "not-allowed"
	ErrServiceNotAllowed    ErrorCode = "service-not-allowed"
	ErrBadGrammar           ErrorCode = "bad-grammar"
	ErrLanguageNotSupported ErrorCode = "language-not-supported"
)

var knownCodes = map[ErrorCode]struct{}{
	ErrNoSpeech: {}, ErrAborted: {}, ErrAudioCapture: {}, ErrNetwork: {},
	ErrNotAllowed: {}, ErrServiceNotAllowed: {}, ErrBadGrammar: {}, ErrLanguageNotSupported: {},
}

// ParseErrorCode maps raw text to a known code; unknown values become aborted.
func ParseErrorCode(raw string) ErrorCode {
	code := ErrorCode(raw)
	if _, ok := knownCodes[code]; ok {
		return code
	}
	return ErrAborted
}

// RecognitionListener receives recognizer notifications. OnEnd fires exactly
// once per Start, however the capture ended.
type RecognitionListener interface {
	OnResult(transcript string, isFinal bool)
	OnError(code ErrorCode)
	OnEnd()
}

// Recognizer turns spoken audio into transcript text.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, listener RecognitionListener) error
	Stop()
}

// Synthesizer reads text aloud. Speak blocks until the utterance has been
// handed off or ctx is cancelled; Cancel silences anything still playing.
type Synthesizer interface {
	Supported() bool
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Unsupported is the capability variant used when nothing can provide speech.
type Unsupported struct{}

var (
	_ Recognizer  = Unsupported{}
	_ Synthesizer = Unsupported{}
)

func (Unsupported) Supported() bool { return false }

func (Unsupported) Start(context.Context, RecognitionListener) error { return nil }

func (Unsupported) Stop() {}

func (Unsupported) Speak(context.Context, string) error { return nil }

func (Unsupported) Cancel() {}
