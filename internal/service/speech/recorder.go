package speech

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// maxCaptureBytes 单次录音上限，约 60 秒 16kHz PCM16；超出后按说完处理
const maxCaptureBytes = pcmSampleRate * 2 * 60

// Recorder 服务端识别：缓存页面推来的 PCM 音频，停止或检测到静音后整体送 ASR。
type Recorder struct {
	transcriber Transcriber
	language    string
	silence     time.Duration
	maxAudio    int
	log         *zap.Logger

	mu     sync.Mutex
	active *capture
}

type capture struct {
	ctx      context.Context
	id       string
	listener speechmodel.RecognitionListener
	audio    bytes.Buffer
	detector *SilenceDetector
}

var _ speechmodel.Recognizer = (*Recorder)(nil)

// NewRecorder 创建识别器
func NewRecorder(transcriber Transcriber, language string, silence time.Duration, log *zap.Logger) *Recorder {
	return &Recorder{
		transcriber: transcriber,
		language:    language,
		silence:     silence,
		maxAudio:    maxCaptureBytes,
		log:         logger.OrNop(log),
	}
}

func (r *Recorder) Supported() bool {
	return r.transcriber != nil
}

// Start 开始一次录音
func (r *Recorder) Start(ctx context.Context, listener speechmodel.RecognitionListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrAlreadyRecording
	}
	r.active = &capture{
		ctx:      ctx,
		id:       uuid.NewString(),
		listener: listener,
		detector: NewSilenceDetector(r.silence),
	}
	r.log.Debug("capture started", zap.String("capture", r.active.id))
	return nil
}

// Feed 追加一段音频；静音超时后自动结束
func (r *Recorder) Feed(chunk []byte) {
	r.mu.Lock()
	c := r.active
	if c == nil {
		r.mu.Unlock()
		return
	}
	if room := r.maxAudio - c.audio.Len(); len(chunk) > room {
		chunk = chunk[:max(room, 0)]
	}
	c.audio.Write(chunk)
	full := c.audio.Len() >= r.maxAudio
	done := full || c.detector.Observe(chunk)
	if done {
		r.active = nil
	}
	r.mu.Unlock()

	if done {
		r.log.Debug("capture ended", zap.String("capture", c.id), zap.Bool("full", full))
		go r.finish(c)
	}
}

// Stop 结束录音并识别；未在录音时无操作
func (r *Recorder) Stop() {
	r.mu.Lock()
	c := r.active
	r.active = nil
	r.mu.Unlock()

	if c != nil {
		go r.finish(c)
	}
}

// Recording 是否正在录音
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Recorder) finish(c *capture) {
	defer c.listener.OnEnd()

	if c.audio.Len() == 0 {
		c.listener.OnError(speechmodel.ErrNoSpeech)
		return
	}

	resp, err := r.transcriber.TranscribeAudio(c.ctx, &speechmodel.ASRRequest{
		SessionID: c.id,
		AudioData: c.audio.Bytes(),
		Format:    "pcm",
		Language:  r.language,
	})
	if err != nil {
		r.log.Warn("transcription failed", zap.String("capture", c.id), zap.Error(err))
		c.listener.OnError(ErrorCodeFor(err))
		return
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		c.listener.OnError(speechmodel.ErrNoSpeech)
		return
	}
	c.listener.OnResult(text, true)
}
