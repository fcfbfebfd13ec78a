package speech

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// AudioSink 接收合成好的音频并在页面播放
type AudioSink interface {
	PlayAudio(data []byte, format string) error
	StopAudio() error
}

// Player 服务端合成：调用 TTS 后把整段音频推给页面
type Player struct {
	synth    AudioSynthesizer
	sink     AudioSink
	voice    string
	language string
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ speechmodel.Synthesizer = (*Player)(nil)

// NewPlayer voice 为空时使用服务配置的默认音色
func NewPlayer(synth AudioSynthesizer, sink AudioSink, voice, language string, log *zap.Logger) *Player {
	return &Player{
		synth:    synth,
		sink:     sink,
		voice:    voice,
		language: language,
		log:      logger.OrNop(log),
	}
}

func (p *Player) Supported() bool {
	return p.synth != nil && p.sink != nil
}

// Speak 合成并播放，ctx 取消或被新的 Cancel 打断时丢弃结果
func (p *Player) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	resp, err := p.synth.SynthesizeSpeech(ctx, &speechmodel.TTSRequest{
		Text:     text,
		Voice:    p.voice,
		Language: p.language,
		Format:   "mp3",
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.sink.PlayAudio(resp.AudioData, resp.Format)
}

// Cancel 打断合成并停止页面播放
func (p *Player) Cancel() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	if p.sink == nil {
		return
	}
	if err := p.sink.StopAudio(); err != nil {
		p.log.Debug("stop audio failed", zap.Error(err))
	}
}
