package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/handler/chat"
	"github.com/zhouzirui/z-chat/internal/handler/page"
	"github.com/zhouzirui/z-chat/internal/handler/speech"
	"github.com/zhouzirui/z-chat/internal/handler/widget"
	aiService "github.com/zhouzirui/z-chat/internal/service/ai"
	chatService "github.com/zhouzirui/z-chat/internal/service/chat"
	speechService "github.com/zhouzirui/z-chat/internal/service/speech"
	"github.com/zhouzirui/z-chat/pkg/utils"
)

// Dependencies 路由所需的核心服务。Speech 为空表示未启用服务端语音。
type Dependencies struct {
	Config *config.Config
	Client *aiService.Client
	Views  *chatService.Registry
	Speech *speechService.Service
	Page   *page.Handler
	Log    *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	cfg := deps.Config

	// 避免把 nil *Service 包成非 nil 接口
	var speechSvc widget.SpeechService
	if deps.Speech != nil {
		speechSvc = deps.Speech
	}

	// Page shell and static assets
	deps.Page.RegisterRoutes(r)

	// One websocket per page view
	widget.New(deps.Client, cfg.Chat, cfg.Speech, speechSvc, deps.Views, deps.Log).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"views":  deps.Views.Count(),
				"chat":   cfg.Chat.HasCredential(),
				"speech": map[string]any{
					"mode":   cfg.Speech.Mode,
					"server": deps.Speech != nil,
				},
			})
		})

		// Live page views
		chat.New(deps.Views).RegisterRoutes(api)

		// Register speech routes if speech service is available
		if deps.Speech != nil {
			speech.New(deps.Speech, deps.Speech.Language(), deps.Log).RegisterRoutes(api)
		}
	})

	return r
}
