package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
)

// 默认文案沿用网页版聊天组件的原始设定。
const (
	DefaultGreeting          = "Hello! I'm a Gemini-powered chatbot. How can I help you today?"
	DefaultSystemInstruction = "You are a friendly and helpful chatbot integrated into a website. Provide clear, concise, and helpful answers."
	DefaultModel             = "doubao-seed-1-6-flash-250828"
	DefaultLanguage          = "en-US"
)

// ErrMissingCredential 表示未配置 API_KEY。
var ErrMissingCredential = errors.New("API_KEY environment variable not set.")

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
	Speech SpeechConfig
	Debug  bool
}

// Load 从环境变量加载配置。缺失 API_KEY 不算加载失败，由会话创建时报告。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("LOG_DEBUG", false)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Chat: chat, Speech: speech, Debug: debug}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig 描述大模型会话配置。
type ChatConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	SystemInstruction string
	Greeting          string
	HistoryLimit      int
}

// HasCredential 表示是否提供了 API_KEY。
func (c ChatConfig) HasCredential() bool {
	return c.APIKey != ""
}

// NewChatModel 使用配置创建一个 Ark 模型实例。modelName 为空时使用配置中的模型。
func (c ChatConfig) NewChatModel(ctx context.Context, modelName string) (model.ChatModel, error) {
	if !c.HasCredential() {
		return nil, ErrMissingCredential
	}

	if modelName == "" {
		modelName = c.Model
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       modelName,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadChatConfig() (ChatConfig, error) {
	temperature, err := parseOptionalFloatEnv("CHAT_TEMPERATURE")
	if err != nil {
		return ChatConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("CHAT_TOP_P")
	if err != nil {
		return ChatConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("CHAT_MAX_TOKENS")
	if err != nil {
		return ChatConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		historyLimit = max(*override, 0)
	}

	return ChatConfig{
		APIKey:            strings.TrimSpace(os.Getenv("API_KEY")),
		Model:             getEnvOrDefault("CHAT_MODEL", DefaultModel),
		BaseURL:           getEnvOrDefault("CHAT_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("CHAT_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		SystemInstruction: getEnvOrDefault("CHAT_SYSTEM_INSTRUCTION", DefaultSystemInstruction),
		Greeting:          getEnvOrDefault("CHAT_GREETING", DefaultGreeting),
		HistoryLimit:      historyLimit,
	}, nil
}

// SpeechMode 决定语音能力由谁提供。
type SpeechMode string

const (
	SpeechModeAuto    SpeechMode = "auto"
	SpeechModeServer  SpeechMode = "server"
	SpeechModeBrowser SpeechMode = "browser"
	SpeechModeOff     SpeechMode = "off"
)

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	AppID       string
	AccessToken string
	ResourceID  string
	Language    string
	TTSVoice    string
	TTSSpeed    float32
	TTSVolume   float32
	Timeout     time.Duration
	Silence     time.Duration
	Mode        SpeechMode
}

// ServerEnabled 表示是否配置了服务端语音凭证。
func (c SpeechConfig) ServerEnabled() bool {
	return c.Mode != SpeechModeOff && c.Mode != SpeechModeBrowser && c.AppID != "" && c.AccessToken != ""
}

// ClientConfig 转换为语音客户端使用的配置。
func (c SpeechConfig) ClientConfig() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		AppID:       c.AppID,
		AccessToken: c.AccessToken,
		ResourceID:  c.ResourceID,
		Language:    c.Language,
		TTSVoice:    c.TTSVoice,
		TTSSpeed:    c.TTSSpeed,
		TTSVolume:   c.TTSVolume,
		Timeout:     c.Timeout,
		Silence:     c.Silence,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	silence, err := parseOptionalIntEnv("SPEECH_SILENCE_MS")
	if err != nil {
		return SpeechConfig{}, err
	}
	silenceMillis := 1500
	if silence != nil {
		silenceMillis = *silence
	}

	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	mode := SpeechMode(strings.ToLower(getEnvOrDefault("SPEECH_MODE", string(SpeechModeAuto))))
	switch mode {
	case SpeechModeAuto, SpeechModeServer, SpeechModeBrowser, SpeechModeOff:
	default:
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_MODE value %q", mode)
	}

	return SpeechConfig{
		AppID:       strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken: strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN")),
		ResourceID:  getEnvOrDefault("SPEECH_RESOURCE_ID", "volc.bigasr.sauc.duration"),
		Language:    getEnvOrDefault("SPEECH_LANGUAGE", DefaultLanguage),
		TTSVoice:    getEnvOrDefault("SPEECH_TTS_VOICE", "en_female_amy_jupiter_bigtts"),
		TTSSpeed:    ttsSpeed,
		TTSVolume:   ttsVolume,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Silence:     time.Duration(silenceMillis) * time.Millisecond,
		Mode:        mode,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
