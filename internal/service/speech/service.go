package speech

import (
	"context"
	"time"

	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// Transcriber 语音识别能力
type Transcriber interface {
	TranscribeAudio(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error)
}

// AudioSynthesizer 语音合成能力
type AudioSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// Service 语音服务，组合 ASR 与 TTS 客户端
type Service struct {
	config *speechmodel.SpeechConfig
	asr    *ASRClient
	tts    *TTSClient
	log    *zap.Logger
}

var (
	_ Transcriber      = (*Service)(nil)
	_ AudioSynthesizer = (*Service)(nil)
)

// NewService 创建语音服务实例
func NewService(config *speechmodel.SpeechConfig, log *zap.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{
		config: config,
		asr:    NewASRClient(config, log.Named("asr")),
		tts:    NewTTSClient(config, log.Named("tts")),
		log:    log,
	}
}

// TranscribeAudio 识别音频
func (s *Service) TranscribeAudio(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := s.asr.Transcribe(ctx, req)
	if err != nil {
		s.log.Warn("asr failed", zap.String("session", req.SessionID), zap.Error(err))
		return nil, err
	}
	s.log.Debug("asr done",
		zap.String("session", req.SessionID),
		zap.Int("bytes", len(req.AudioData)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// SynthesizeSpeech 合成语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := s.tts.Synthesize(ctx, req)
	if err != nil {
		s.log.Warn("tts failed", zap.String("session", req.SessionID), zap.Error(err))
		return nil, err
	}
	s.log.Debug("tts done",
		zap.String("session", req.SessionID),
		zap.Int("bytes", len(resp.AudioData)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// Language 默认识别与合成语言
func (s *Service) Language() string {
	return s.config.Language
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}
