package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// 流式输入模式：整段音频发完后服务端一次性返回结果
const asrURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

// 16kHz, 16bit, mono, 200ms
const asrChunkSize = 6400

// ASRClient 火山引擎大模型 ASR 客户端
type ASRClient struct {
	config *speechmodel.SpeechConfig
	dialer *websocket.Dialer
	url    string
	log    *zap.Logger
}

// NewASRClient 创建 ASR 客户端
func NewASRClient(config *speechmodel.SpeechConfig, log *zap.Logger) *ASRClient {
	return &ASRClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		url:    asrURL,
		log:    logger.OrNop(log),
	}
}

type asrPayload struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate"`
		Bits     int    `json:"bits"`
		Channel  int    `json:"channel"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn"`
		EnablePunc     bool   `json:"enable_punc"`
		ShowUtterances bool   `json:"show_utterances"`
		ResultType     string `json:"result_type"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Transcribe 识别一段完整音频
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if len(req.AudioData) == 0 {
		return nil, ErrNoAudio
	}

	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := dial(ctx, c.dialer, c.url, authHeader(appID, token, c.config.ResourceID, sessionID))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	payload, err := json.Marshal(c.buildPayload(req, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	compressed, err := gzipBytes(payload)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, newRequestFrame(compressed, true).encode()); err != nil {
		return nil, c.writeErr(ctx, "failed to send ASR request", err)
	}

	// 请求占用序号 1，音频从 2 开始
	sequence := int32(2)
	for offset := 0; offset < len(req.AudioData); offset += asrChunkSize {
		end := min(offset+asrChunkSize, len(req.AudioData))
		chunk, err := gzipBytes(req.AudioData[offset:end])
		if err != nil {
			return nil, err
		}
		last := end == len(req.AudioData)
		if err := conn.WriteMessage(websocket.BinaryMessage, newAudioFrame(chunk, sequence, last).encode()); err != nil {
			return nil, c.writeErr(ctx, "failed to send audio chunk", err)
		}
		sequence++
	}

	return c.receive(ctx, conn, sessionID)
}

func (c *ASRClient) writeErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (c *ASRClient) receive(ctx context.Context, conn *websocket.Conn, sessionID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, c.writeErr(ctx, "failed to read ASR response", err)
		}

		f, err := decodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR frame: %w", err)
		}

		body, err := f.payload()
		if err != nil {
			return nil, err
		}

		switch f.Type {
		case frameError:
			return nil, &APIError{Code: int(f.ErrorCode), Message: string(body)}

		case frameFullServerResponse:
			var msg asrServerMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				c.log.Debug("asr payload not json", zap.Error(err))
				continue
			}
			if msg.Code != 0 && msg.Code != 20000000 {
				return nil, &APIError{Code: msg.Code, Message: msg.Message}
			}

			if candidate := resultText(msg); candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if f.isLast() {
				return &speechmodel.ASRResponse{
					SessionID: sessionID,
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					RequestID: sessionID,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func (c *ASRClient) buildPayload(req *speechmodel.ASRRequest, sessionID string) *asrPayload {
	payload := &asrPayload{}
	payload.User.UID = sessionID

	payload.Audio.Format = req.Format
	if payload.Audio.Format == "" {
		payload.Audio.Format = "pcm"
	}
	payload.Audio.Language = req.Language
	if payload.Audio.Language == "" {
		payload.Audio.Language = c.config.Language
	}
	payload.Audio.Codec = "raw"
	payload.Audio.Rate = 16000
	payload.Audio.Bits = 16
	payload.Audio.Channel = 1

	payload.Request.ModelName = "bigmodel"
	payload.Request.EnableITN = true
	payload.Request.EnablePunc = true
	payload.Request.ShowUtterances = true
	payload.Request.ResultType = "full"
	payload.Request.EndWindowSize = 800
	return payload
}

func resultText(msg asrServerMessage) string {
	if msg.Result.Text != "" {
		return msg.Result.Text
	}
	parts := make([]string, 0, len(msg.Result.Utterances))
	for _, u := range msg.Result.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}
