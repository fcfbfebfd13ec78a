package widget

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// OutputAdapter reads replies aloud. At most one utterance is audible: each
// Speak cancels the previous one before starting.
type OutputAdapter struct {
	synthesizer speech.Synthesizer
	enabled     bool
	log         *zap.Logger

	cancel context.CancelFunc
}

// NewOutputAdapter wraps synthesizer; nil means synthesis is unsupported.
// Output starts enabled.
func NewOutputAdapter(synthesizer speech.Synthesizer, log *zap.Logger) *OutputAdapter {
	if synthesizer == nil {
		synthesizer = speech.Unsupported{}
	}
	return &OutputAdapter{synthesizer: synthesizer, enabled: true, log: logger.OrNop(log)}
}

// SetEnabled gates future Speak calls. Audio already playing keeps playing.
func (o *OutputAdapter) SetEnabled(enabled bool) {
	o.enabled = enabled
}

// Speak is a no-op when disabled, unsupported or given blank text. Errors are
// logged, never surfaced.
func (o *OutputAdapter) Speak(ctx context.Context, text string) {
	if !o.enabled || !o.synthesizer.Supported() || strings.TrimSpace(text) == "" {
		return
	}

	o.stop()

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	go func() {
		if err := o.synthesizer.Speak(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
			o.log.Warn("speech synthesis failed", zap.Error(err))
		}
	}()
}

// Close silences any utterance still in flight.
func (o *OutputAdapter) Close() {
	if o.synthesizer.Supported() {
		o.stop()
	}
}

func (o *OutputAdapter) stop() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.synthesizer.Cancel()
}
