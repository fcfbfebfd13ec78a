package widget

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ui "github.com/zhouzirui/z-chat/internal/widget"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// 单帧上限，足够容纳一段 base64 编码的麦克风音频
	maxMessageSize = 512 << 10
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type inputData struct {
	Text string `json:"text"`
	Seq  uint64 `json:"seq"`
}

// audioData PCM16 16kHz 单声道，JSON 中为 base64
type audioData struct {
	Data []byte `json:"data"`
}

type recognitionResultData struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

type codeData struct {
	Code string `json:"code"`
}

type speakData struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

type langData struct {
	Lang string `json:"lang"`
}

type capabilitiesData struct {
	Recognition string `json:"recognition"`
	Synthesis   string `json:"synthesis"`
}

type playAudioData struct {
	Data   []byte `json:"data"`
	Format string `json:"format"`
}

// connection 串行化对同一个 websocket 的所有写操作
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *connection) send(msgType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(outgoingMessage{Type: msgType, Data: data})
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Render 推送最新视图
func (c *connection) Render(v ui.View) error {
	return c.send("state", v)
}

// PlayAudio 推送服务端合成的音频
func (c *connection) PlayAudio(data []byte, format string) error {
	return c.send("audio", playAudioData{Data: data, Format: format})
}

// StopAudio 停止页面正在播放的音频
func (c *connection) StopAudio() error {
	return c.send("audio.stop", nil)
}
