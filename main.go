package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"emochat-backend/internal/chatbot"
	"emochat-backend/internal/db"
	"emochat-backend/internal/emotion"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/logic"
	"emochat-backend/internal/metrics"
	"emochat-backend/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if envErr != nil {
		log.Warn("未加载 .env 文件，仅使用系统环境变量", "error", envErr)
	}
	cfg.Print(log)
	gin.SetMode(cfg.Server.Mode)

	shutdownTracing := tracing.Init(ctx, log, cfg.Tracing)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	gdb, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("数据库初始化失败", "error", err)
	}
	store := db.NewStore(gdb, log, m)

	classifier, err := emotion.NewClassifier(ctx, cfg.Emotion, log)
	if err != nil {
		log.Error("情绪识别后端初始化失败，降级为 neutral", "backend", cfg.Emotion.Backend, "error", err)
		classifier = emotion.StaticClassifier{Label: emotion.Neutral}
	}
	if closer, ok := classifier.(io.Closer); ok {
		defer closer.Close()
	}

	generator, err := chatbot.NewGenerator(ctx, cfg.LLM)
	if err != nil {
		log.Error("大模型后端初始化失败，回复将降级为道歉文案", "backend", cfg.LLM.Backend, "error", err)
		generator = chatbot.Unavailable(cfg.LLM.Backend, err)
	}

	if m != nil {
		logic.StartScheduler(ctx, store, m, cfg.Metrics.RefreshInterval, log)
	}

	traceService := ""
	if cfg.Tracing.Enabled {
		traceService = cfg.Tracing.ServiceName
	}
	router, err := logic.SetupRouter(logic.Deps{
		Config:       cfg.Server,
		Detector:     emotion.NewDetector(classifier, log, m),
		Responder:    chatbot.NewResponder(generator, cfg.LLM.MaxTokens, log, m),
		Store:        store,
		Log:          log,
		Metrics:      m,
		TraceService: traceService,
	})
	if err != nil {
		log.Fatal("路由初始化失败", "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info("emochat backend listening", "addr", cfg.Server.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Error("server error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// runServer 阻塞直到 ctx 取消或服务异常退出，取消后最多等待 10 秒
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
