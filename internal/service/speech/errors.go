package speech

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
)

var (
	// ErrMissingCredentials 语音配置缺少 AppID 或 AccessToken
	ErrMissingCredentials = errors.New("speech credentials missing app id or access token")
	// ErrNoAudio 没有可识别的音频
	ErrNoAudio = errors.New("no audio data to send")
	// ErrEmptyText 待合成文本为空
	ErrEmptyText = errors.New("TTS text is empty")
	// ErrAlreadyRecording 录音已在进行
	ErrAlreadyRecording = errors.New("recognition has already started")
)

// HandshakeError 记录 websocket 握手失败时的 HTTP 状态码
type HandshakeError struct {
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("websocket handshake failed (status %d): %v", e.Status, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// APIError 服务端返回的业务错误
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("speech API error %d: %s", e.Code, e.Message)
}

// ErrorCodeFor 将服务端语音错误映射为识别错误词表
func ErrorCodeFor(err error) speechmodel.ErrorCode {
	if err == nil {
		return ""
	}

	var handshake *HandshakeError
	var apiErr *APIError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return speechmodel.ErrAborted
	case errors.Is(err, ErrNoAudio):
		return speechmodel.ErrNoSpeech
	case errors.Is(err, ErrMissingCredentials):
		return speechmodel.ErrServiceNotAllowed
	case errors.As(err, &handshake):
		if handshake.Status == http.StatusUnauthorized || handshake.Status == http.StatusForbidden {
			return speechmodel.ErrServiceNotAllowed
		}
		return speechmodel.ErrNetwork
	case errors.As(err, &apiErr):
		if strings.Contains(strings.ToLower(apiErr.Message), "language") {
			return speechmodel.ErrLanguageNotSupported
		}
		return speechmodel.ErrNetwork
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return speechmodel.ErrNetwork
	default:
		return speechmodel.ErrNetwork
	}
}
