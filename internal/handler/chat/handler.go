package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/z-chat/internal/service/chat"
	"github.com/zhouzirui/z-chat/pkg/utils"
)

// Handler 暴露当前连接的页面视图
type Handler struct {
	views *chatService.Registry
}

// New 创建视图处理器
func New(views *chatService.Registry) *Handler {
	return &Handler{views: views}
}

// RegisterRoutes 注册视图相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/views", h.handleListViews)
	r.Get("/views/{viewID}", h.handleGetView)
}

// handleListViews 列出所有打开的视图
func (h *Handler) handleListViews(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count": h.views.Count(),
		"views": h.views.List(),
	})
}

// handleGetView 查询单个视图
func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.Get(chi.URLParam(r, "viewID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrViewNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, view)
}
