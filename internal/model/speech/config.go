package speech

import "time"

// SpeechConfig 服务端语音（火山引擎）配置
type SpeechConfig struct {
	AppID       string `json:"appId"`       // 火山引擎 APP ID
	AccessToken string `json:"accessToken"` // 火山引擎 Access Token
	ResourceID  string `json:"resourceId"`  // ASR 资源 ID

	Language string `json:"language"` // en-US, zh-CN ...

	// TTS 配置
	TTSVoice  string  `json:"ttsVoice"`
	TTSSpeed  float32 `json:"ttsSpeed"`
	TTSVolume float32 `json:"ttsVolume"`

	Timeout time.Duration `json:"timeout"`
	// Silence 录音中检测到语音后，持续静音多久自动结束
	Silence time.Duration `json:"silence"`
}
