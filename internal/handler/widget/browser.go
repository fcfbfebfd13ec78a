package widget

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/z-chat/internal/model/speech"
)

var errRecognitionActive = errors.New("browser recognition already running")

// browserRecognizer 把识别委托给页面的 Web Speech API
type browserRecognizer struct {
	conn *connection
	lang string

	mu       sync.Mutex
	listener speech.RecognitionListener
}

var _ speech.Recognizer = (*browserRecognizer)(nil)

func (b *browserRecognizer) Supported() bool { return true }

func (b *browserRecognizer) Start(_ context.Context, listener speech.RecognitionListener) error {
	b.mu.Lock()
	if b.listener != nil {
		b.mu.Unlock()
		return errRecognitionActive
	}
	b.listener = listener
	b.mu.Unlock()

	if err := b.conn.send("recognition.start", langData{Lang: b.lang}); err != nil {
		b.mu.Lock()
		b.listener = nil
		b.mu.Unlock()
		return err
	}
	return nil
}

func (b *browserRecognizer) Stop() {
	_ = b.conn.send("recognition.stop", nil)
}

func (b *browserRecognizer) current() speech.RecognitionListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listener
}

func (b *browserRecognizer) result(transcript string, isFinal bool) {
	if l := b.current(); l != nil {
		l.OnResult(transcript, isFinal)
	}
}

func (b *browserRecognizer) fail(code speech.ErrorCode) {
	if l := b.current(); l != nil {
		l.OnError(code)
	}
}

// end 页面的 onend；同一次 Start 只通知一次
func (b *browserRecognizer) end() {
	b.mu.Lock()
	l := b.listener
	b.listener = nil
	b.mu.Unlock()

	if l != nil {
		l.OnEnd()
	}
}

// browserSynthesizer 把朗读委托给页面的 speechSynthesis
type browserSynthesizer struct {
	conn *connection
	lang string
}

var _ speech.Synthesizer = (*browserSynthesizer)(nil)

func (b *browserSynthesizer) Supported() bool { return true }

func (b *browserSynthesizer) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.conn.send("speech.speak", speakData{Text: text, Lang: b.lang})
}

func (b *browserSynthesizer) Cancel() {
	_ = b.conn.send("speech.cancel", nil)
}
