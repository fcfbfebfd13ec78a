package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

const ttsURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// TTSClient 火山引擎单向流式 TTS 客户端
type TTSClient struct {
	config *speechmodel.SpeechConfig
	dialer *websocket.Dialer
	url    string
	log    *zap.Logger
}

// NewTTSClient 创建 TTS 客户端
func NewTTSClient(config *speechmodel.SpeechConfig, log *zap.Logger) *TTSClient {
	return &TTSClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		url:    ttsURL,
		log:    logger.OrNop(log),
	}
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

type ttsPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

// Synthesize 合成整段文本，返回完整音频。音色与资源不匹配时依次尝试候选资源。
func (c *TTSClient) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	speaker := strings.TrimSpace(req.Voice)
	if speaker == "" {
		speaker = strings.TrimSpace(c.config.TTSVoice)
	}

	var lastErr error
	for idx, resourceID := range ttsResourceCandidates(speaker) {
		resp, err := c.synthesizeWith(ctx, req, appID, token, speaker, resourceID)
		if err == nil {
			if idx > 0 {
				c.log.Info("tts fallback resource succeeded", zap.String("voice", speaker), zap.String("resource", resourceID))
			}
			return resp, nil
		}
		if !isResourceMismatch(err) {
			return nil, err
		}
		c.log.Debug("tts resource mismatch", zap.String("voice", speaker), zap.String("resource", resourceID), zap.Error(err))
		lastErr = err
	}
	return nil, lastErr
}

func (c *TTSClient) synthesizeWith(ctx context.Context, req *speechmodel.TTSRequest, appID, token, speaker, resourceID string) (*speechmodel.TTSResponse, error) {
	connectID := uuid.NewString()
	conn, err := dial(ctx, c.dialer, c.url, authHeader(appID, token, resourceID, connectID))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, err := json.Marshal(c.buildPayload(req, speaker))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, newRequestFrame(payload, false).encode()); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}

		f, err := decodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS frame: %w", err)
		}

		body, err := f.payload()
		if err != nil {
			return nil, err
		}

		switch f.Type {
		case frameError:
			return nil, &APIError{Code: int(f.ErrorCode), Message: string(body)}

		case frameAudioOnlyResponse:
			audio.Write(body)

		case frameFullServerResponse:
			var msg ttsServerMessage
			if len(body) > 0 {
				if err := json.Unmarshal(body, &msg); err != nil {
					c.log.Debug("tts payload not json", zap.Error(err))
				}
			}
			if msg.Code != 0 && msg.Code != 3000 {
				return nil, &APIError{Code: msg.Code, Message: msg.Message}
			}
			if msg.ReqID != "" {
				reqID = msg.ReqID
			}
			if msg.Addition.Duration != "" {
				if parsed, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
					duration = parsed
				}
			}
			if msg.Data != "" {
				chunk, err := base64.StdEncoding.DecodeString(msg.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
				}
				audio.Write(chunk)
			}

			finished := (f.hasEvent() && f.Event == eventSessionFinished) || f.isLast() || msg.Sequence < 0
			if !finished {
				continue
			}
			if audio.Len() == 0 {
				return nil, errors.New("TTS audio is empty")
			}
			if reqID == "" {
				reqID = connectID
			}
			return &speechmodel.TTSResponse{
				SessionID: req.SessionID,
				AudioData: audio.Bytes(),
				Duration:  duration,
				Format:    ttsFormat(req.Format),
				RequestID: reqID,
				CreatedAt: time.Now(),
			}, nil

		default:
			c.log.Debug("tts unexpected frame", zap.Uint8("type", uint8(f.Type)))
		}
	}
}

func (c *TTSClient) buildPayload(req *speechmodel.TTSRequest, speaker string) *ttsPayload {
	payload := &ttsPayload{}

	payload.User.UID = req.SessionID
	if payload.User.UID == "" {
		payload.User.UID = uuid.NewString()
	}

	payload.ReqParams.Speaker = speaker
	payload.ReqParams.Text = req.Text
	payload.ReqParams.AudioParams.Format = ttsFormat(req.Format)
	payload.ReqParams.AudioParams.SampleRate = 24000

	speed := req.Speed
	if speed <= 0 {
		speed = c.config.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		payload.ReqParams.AudioParams.SpeedRatio = speed
	}

	volume := req.Volume
	if volume <= 0 {
		volume = c.config.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		payload.ReqParams.AudioParams.VolumeRatio = volume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = c.config.Language
	}
	payload.ReqParams.Language = language

	return payload
}

// ttsFormat 服务端不支持 wav 输出，统一回落到 mp3
func ttsFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "wav" {
		return "mp3"
	}
	return format
}

func ttsResourceCandidates(voice string) []string {
	const (
		defaultResource = "volc.service_type.10029"
		megaResource    = "volc.megatts.default"
		seedResource    = "seed-tts-2.0"
	)

	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "venus", "jupiter", "mars"} {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}
	return []string{defaultResource, seedResource}
}

func isResourceMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}

// dial 建立 websocket 连接，握手失败时保留 HTTP 状态码
func dial(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header) (*websocket.Conn, error) {
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{Status: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return conn, nil
}
