package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/config"
	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

func main() {
	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径 (pcm/wav, 16kHz 单声道)")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认根据格式自动生成)")
	format := flag.String("format", "", "音频格式 (ASR: 输入格式; TTS: 输出格式)")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	voice := flag.String("voice", "", "TTS 声音 ID，默认使用配置中的 TTSVoice")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug).Named("speechtester")
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Warn("无法加载 .env，改用系统环境变量", zap.Error(envErr))
	}

	if !cfg.Speech.ServerEnabled() {
		log.Fatal("服务端语音未启用，请配置 SPEECH_APP_ID / SPEECH_ACCESS_TOKEN 且 SPEECH_MODE 不为 browser/off")
	}

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	svc := speech.NewService(cfg.Speech.ClientConfig(), log)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		err = runASR(ctx, svc, log, sessionID, *audioPath, *format, *language)
	case "tts":
		err = runTTS(ctx, svc, cfg, log, sessionID, *text, *voice, *format, *language, *outputPath)
	}
	if err != nil {
		log.Fatal("测试失败", zap.String("mode", *mode), zap.Error(err),
			zap.String("code", string(speech.ErrorCodeFor(err))))
	}
}

func runASR(ctx context.Context, svc *speech.Service, log *zap.Logger, sessionID, audioPath, format, language string) error {
	if audioPath == "" {
		return fmt.Errorf("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("读取音频文件失败: %w", err)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	if language == "" {
		language = svc.Language()
	}

	log.Info("开始进行 ASR 测试",
		zap.String("session", sessionID), zap.String("format", format), zap.String("language", language),
		zap.Int("bytes", len(audio)))

	resp, err := svc.TranscribeAudio(ctx, &speechmodel.ASRRequest{
		SessionID: sessionID,
		AudioData: audio,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		return err
	}

	log.Info("ASR 识别成功", zap.String("text", resp.Text), zap.Int64("durationMs", resp.Duration))
	return nil
}

func runTTS(ctx context.Context, svc *speech.Service, cfg *config.Config, log *zap.Logger, sessionID, text, voice, format, language, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("TTS 模式需要通过 -text 提供待合成文本")
	}

	if voice == "" {
		voice = cfg.Speech.TTSVoice
	}

	if language == "" {
		language = svc.Language()
	}

	if format == "" {
		format = "mp3"
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	log.Info("开始进行 TTS 测试",
		zap.String("session", sessionID), zap.String("voice", voice), zap.String("format", format))

	resp, err := svc.SynthesizeSpeech(ctx, &speechmodel.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		return fmt.Errorf("写入音频文件失败: %w", err)
	}

	log.Info("TTS 合成成功", zap.String("output", outputPath), zap.Int64("durationMs", resp.Duration))
	return nil
}
