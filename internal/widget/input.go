package widget

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// InputAdapter drives a speech recognizer and turns its notifications into
// view events.
type InputAdapter struct {
	recognizer speech.Recognizer
	post       func(Event)
	log        *zap.Logger
}

// NewInputAdapter wraps recognizer; nil means recognition is unsupported.
func NewInputAdapter(recognizer speech.Recognizer, post func(Event), log *zap.Logger) *InputAdapter {
	if recognizer == nil {
		recognizer = speech.Unsupported{}
	}
	return &InputAdapter{recognizer: recognizer, post: post, log: logger.OrNop(log)}
}

func (a *InputAdapter) Supported() bool {
	return a.recognizer.Supported()
}

// Start begins capture. A recognizer that refuses to start is reported like
// any other capture failure: an error code, then the end notification.
func (a *InputAdapter) Start(ctx context.Context) {
	if !a.Supported() {
		return
	}
	l := listener{post: a.post}
	if err := a.recognizer.Start(ctx, l); err != nil {
		a.log.Warn("recognition start failed", zap.Error(err))
		go func() {
			l.OnError(speech.ErrAudioCapture)
			l.OnEnd()
		}()
	}
}

func (a *InputAdapter) Stop() {
	if a.Supported() {
		a.recognizer.Stop()
	}
}

type listener struct {
	post func(Event)
}

func (l listener) OnResult(transcript string, isFinal bool) {
	l.post(TranscriptReceived{Transcript: transcript, IsFinal: isFinal})
}

func (l listener) OnError(code speech.ErrorCode) {
	l.post(RecognitionFailed{Code: code})
}

func (l listener) OnEnd() {
	l.post(RecognitionEnded{})
}
