package widget

import (
	"net/http"
	"strconv"

	"github.com/zhouzirui/z-chat/internal/config"
)

// backend 语音能力的提供方
type backend string

const (
	backendNone    backend = "none"
	backendServer  backend = "server"
	backendBrowser backend = "browser"
)

// pageCapabilities 页面在 /ws 查询参数中声明的浏览器能力
type pageCapabilities struct {
	Recognition bool // Web Speech 识别
	Synthesis   bool // speechSynthesis
	Capture     bool // getUserMedia 采集麦克风
}

func parsePageCapabilities(r *http.Request) pageCapabilities {
	q := r.URL.Query()
	return pageCapabilities{
		Recognition: queryBool(q.Get("recognition")),
		Synthesis:   queryBool(q.Get("synthesis")),
		Capture:     queryBool(q.Get("capture")),
	}
}

func queryBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// resolveBackends 在视图建立时一次性决定识别与合成由谁提供
func resolveBackends(mode config.SpeechMode, serverAvailable bool, page pageCapabilities) (recognition, synthesis backend) {
	recognition, synthesis = backendNone, backendNone

	switch mode {
	case config.SpeechModeOff:
		return

	case config.SpeechModeServer:
		if serverAvailable && page.Capture {
			recognition = backendServer
		}
		if serverAvailable {
			synthesis = backendServer
		}

	case config.SpeechModeBrowser:
		if page.Recognition {
			recognition = backendBrowser
		}
		if page.Synthesis {
			synthesis = backendBrowser
		}

	default:
		switch {
		case serverAvailable && page.Capture:
			recognition = backendServer
		case page.Recognition:
			recognition = backendBrowser
		}
		switch {
		case serverAvailable:
			synthesis = backendServer
		case page.Synthesis:
			synthesis = backendBrowser
		}
	}
	return
}
