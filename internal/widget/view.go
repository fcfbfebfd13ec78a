package widget

import (
	"strings"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

const (
	placeholderListening    = "Listening..."
	placeholderReady        = "Type or say something..."
	placeholderInitializing = "Initializing chatbot..."
)

// View is what the page draws for a State.
type View struct {
	Messages        []chat.Message `json:"messages"`
	Input           string         `json:"input"`
	InputSeq        uint64         `json:"inputSeq"`
	Placeholder     string         `json:"placeholder"`
	InputDisabled   bool           `json:"inputDisabled"`
	MicDisabled     bool           `json:"micDisabled"`
	SubmitDisabled  bool           `json:"submitDisabled"`
	MicSupported    bool           `json:"micSupported"`
	IsLoading       bool           `json:"isLoading"`
	IsRecording     bool           `json:"isRecording"`
	IsSpeechEnabled bool           `json:"isSpeechEnabled"`
	ShowTyping      bool           `json:"showTyping"`
	ErrorBanner     string         `json:"errorBanner,omitempty"`
}

// Renderer receives a View after every state change.
type Renderer interface {
	Render(View) error
}

// RenderView derives the View for s.
func RenderView(s State) View {
	blocked := s.IsLoading || !s.HasSession

	v := View{
		Messages:        s.Messages,
		Input:           s.Input,
		InputSeq:        s.InputSeq,
		InputDisabled:   blocked,
		MicDisabled:     blocked,
		SubmitDisabled:  blocked || strings.TrimSpace(s.Input) == "",
		MicSupported:    s.RecognitionSupported,
		IsLoading:       s.IsLoading,
		IsRecording:     s.IsRecording,
		IsSpeechEnabled: s.IsSpeechEnabled,
	}
	if v.Messages == nil {
		v.Messages = []chat.Message{}
	}

	switch {
	case s.IsRecording:
		v.Placeholder = placeholderListening
	case s.HasSession:
		v.Placeholder = placeholderReady
	default:
		v.Placeholder = placeholderInitializing
	}

	if last, ok := s.Messages.Last(); ok && s.IsLoading && last.Role == chat.RoleUser {
		v.ShowTyping = true
	}

	// 已有错误消息时不再重复显示横幅
	if s.Error != "" && !s.Messages.HasRole(chat.RoleError) {
		v.ErrorBanner = s.Error
	}
	return v
}
