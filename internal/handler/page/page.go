package page

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	defaultTitle  = "Gemini Chat"
	defaultFooter = "© 2024 Gemini Chat Website. All rights reserved. Powered by AI."
)

// Options 页面外壳的文案
type Options struct {
	Title  string
	Footer string
}

// Handler 渲染页面外壳并提供静态资源
type Handler struct {
	tmpl   *template.Template
	opts   Options
	static http.Handler
	log    *zap.Logger
}

// New 解析内嵌模板
func New(opts Options, log *zap.Logger) (*Handler, error) {
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	if opts.Footer == "" {
		opts.Footer = defaultFooter
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	return &Handler{
		tmpl:   tmpl,
		opts:   opts,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(assets))),
		log:    logger.OrNop(log).Named("page"),
	}, nil
}

// RegisterRoutes 注册页面与静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/static/*", h.static.ServeHTTP)
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", h.opts); err != nil {
		h.log.Error("render page failed", zap.Error(err))
	}
}
