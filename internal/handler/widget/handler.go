package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/model/speech"
	"github.com/zhouzirui/z-chat/internal/service/ai"
	chatservice "github.com/zhouzirui/z-chat/internal/service/chat"
	speechservice "github.com/zhouzirui/z-chat/internal/service/speech"
	ui "github.com/zhouzirui/z-chat/internal/widget"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

// SpeechService 服务端语音能力
type SpeechService interface {
	speechservice.Transcriber
	speechservice.AudioSynthesizer
}

// Handler 每个 websocket 连接对应一个页面视图
type Handler struct {
	client    *ai.Client
	chatCfg   config.ChatConfig
	speech    config.SpeechConfig
	speechSvc SpeechService
	views     *chatservice.Registry
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

// New 创建页面 websocket 处理器；speechSvc 为 nil 时只能使用浏览器语音
func New(client *ai.Client, chatCfg config.ChatConfig, speechCfg config.SpeechConfig, speechSvc SpeechService, views *chatservice.Registry, log *zap.Logger) *Handler {
	return &Handler{
		client:    client,
		chatCfg:   chatCfg,
		speech:    speechCfg,
		speechSvc: speechSvc,
		views:     views,
		log:       logger.OrNop(log).Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册 websocket 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// view 一个页面视图的服务端状态
type view struct {
	id          string
	recognition backend
	synthesis   backend

	conn       *connection
	controller *ui.Controller
	recorder   *speechservice.Recorder
	browserRec *browserRecognizer
	log        *zap.Logger
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	page := parsePageCapabilities(r)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	v := h.newView(ws, page, r.RemoteAddr)
	defer h.views.Close(v.id)

	v.log.Info("view opened")

	// 页面据此决定是否需要自行采集麦克风音频
	if err := v.conn.send("capabilities", capabilitiesData{
		Recognition: string(v.recognition),
		Synthesis:   string(v.synthesis),
	}); err != nil {
		v.log.Warn("send capabilities failed", zap.Error(err))
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := v.controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			v.log.Warn("controller stopped", zap.Error(err))
		}
	}()
	go h.pingLoop(ctx, v.conn)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.log.Warn("read error", zap.Error(err))
			}
			break
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
		v.handleMessage(&msg)
	}

	cancel()
	<-done
	v.log.Info("view closed")
}

func (h *Handler) newView(ws *websocket.Conn, page pageCapabilities, remoteAddr string) *view {
	conn := &connection{conn: ws}
	recognition, synthesis := resolveBackends(h.speech.Mode, h.speechSvc != nil, page)

	opened := h.views.Open(chatservice.View{
		RemoteAddr:  remoteAddr,
		Recognition: string(recognition),
		Synthesis:   string(synthesis),
	})

	v := &view{
		id:          opened.ID,
		recognition: recognition,
		synthesis:   synthesis,
		conn:        conn,
		log:         h.log.With(zap.String("view", opened.ID)),
	}

	var recognizer speech.Recognizer
	switch recognition {
	case backendServer:
		v.recorder = speechservice.NewRecorder(h.speechSvc, h.speech.Language, h.speech.Silence, v.log.Named("recorder"))
		recognizer = v.recorder
	case backendBrowser:
		v.browserRec = &browserRecognizer{conn: conn, lang: h.speech.Language}
		recognizer = v.browserRec
	}

	var synthesizer speech.Synthesizer
	switch synthesis {
	case backendServer:
		synthesizer = speechservice.NewPlayer(h.speechSvc, conn, h.speech.TTSVoice, h.speech.Language, v.log.Named("player"))
	case backendBrowser:
		synthesizer = &browserSynthesizer{conn: conn, lang: h.speech.Language}
	}

	v.controller = ui.NewController(h.client, ui.Options{
		Greeting:          h.chatCfg.Greeting,
		SystemInstruction: h.chatCfg.SystemInstruction,
		Model:             h.chatCfg.Model,
		Recognizer:        recognizer,
		Synthesizer:       synthesizer,
	}, conn, v.log.Named("widget"))

	v.log.Debug("capabilities resolved",
		zap.String("recognition", string(recognition)),
		zap.String("synthesis", string(synthesis)))
	return v
}

func (v *view) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case "input":
		var data inputData
		if !v.decode(msg, &data) {
			return
		}
		v.controller.Post(ui.InputChanged{Text: data.Text, Seq: data.Seq})

	case "submit":
		v.controller.Post(ui.Submitted{})

	case "toggleMic":
		v.controller.Post(ui.RecordingToggled{})

	case "toggleSpeaker":
		v.controller.Post(ui.SpeechToggled{})

	case "audio":
		// 未在录音时页面可能仍有残留音频帧，直接丢弃不解码
		if v.recorder == nil || !v.recorder.Recording() {
			return
		}
		var data audioData
		if !v.decode(msg, &data) {
			return
		}
		v.recorder.Feed(data.Data)

	case "recognition.result":
		if v.browserRec == nil {
			return
		}
		var data recognitionResultData
		if !v.decode(msg, &data) {
			return
		}
		v.browserRec.result(data.Transcript, data.IsFinal)

	case "recognition.error":
		if v.browserRec == nil {
			return
		}
		var data codeData
		if !v.decode(msg, &data) {
			return
		}
		v.browserRec.fail(speech.ParseErrorCode(data.Code))

	case "recognition.end":
		if v.browserRec != nil {
			v.browserRec.end()
		}

	case "synthesis.error":
		var data codeData
		_ = json.Unmarshal(msg.Data, &data)
		v.log.Warn("speech synthesis error", zap.String("code", data.Code))

	default:
		v.log.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

func (v *view) decode(msg *inboundMessage, target any) bool {
	if len(msg.Data) == 0 {
		v.log.Debug("message without data", zap.String("type", msg.Type))
		return false
	}
	if err := json.Unmarshal(msg.Data, target); err != nil {
		v.log.Warn("invalid message payload", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	return true
}

// pingLoop 定期发送 ping 保持连接
func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
