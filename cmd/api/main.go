package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/handler"
	"github.com/zhouzirui/z-chat/internal/handler/page"
	"github.com/zhouzirui/z-chat/internal/service/ai"
	"github.com/zhouzirui/z-chat/internal/service/chat"
	"github.com/zhouzirui/z-chat/internal/service/speech"
	"github.com/zhouzirui/z-chat/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	// 缺少凭证时仍然启动，由每个页面视图在创建会话时报告错误
	if !cfg.Chat.HasCredential() {
		log.Warn("API_KEY 未配置，聊天会话将无法创建")
	}
	client := ai.NewClient(cfg.Chat, log)

	// Initialize Speech service
	var speechService *speech.Service
	if cfg.Speech.ServerEnabled() {
		speechService = speech.NewService(cfg.Speech.ClientConfig(), log.Named("speech"))
		log.Info("speech service initialized", zap.String("mode", string(cfg.Speech.Mode)), zap.String("language", cfg.Speech.Language))
	} else {
		log.Info("服务端语音未启用，语音能力由浏览器提供", zap.String("mode", string(cfg.Speech.Mode)))
	}

	pageHandler, err := page.New(page.Options{}, log)
	if err != nil {
		log.Fatal("failed to parse page templates", zap.Error(err))
	}

	router := handler.NewRouter(handler.Dependencies{
		Config: cfg,
		Client: client,
		Views:  chat.NewRegistry(),
		Speech: speechService,
		Page:   pageHandler,
		Log:    log,
	})

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("z-chat listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
