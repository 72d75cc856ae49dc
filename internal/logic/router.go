package logic

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"emochat-backend/internal/chatbot"
	"emochat-backend/internal/common"
	"emochat-backend/internal/db"
	"emochat-backend/internal/emotion"
	"emochat-backend/internal/logger"
	"emochat-backend/internal/metrics"
	"emochat-backend/web"
)

// Deps 路由依赖，全部由 main 注入
type Deps struct {
	Config    Config
	Detector  *emotion.Detector
	Responder *chatbot.Responder
	Store     *db.Store
	Log       *logger.Logger
	Metrics   *metrics.Metrics
	// TraceService 非空时启用 otelgin
	TraceService string
}

type handler struct {
	cfg       Config
	detector  *emotion.Detector
	responder *chatbot.Responder
	store     *db.Store
	log       *logger.Logger
	index     *template.Template
}

// SetupRouter 路由入口
func SetupRouter(d Deps) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(requestID())
	if d.TraceService != "" {
		r.Use(otelgin.Middleware(d.TraceService))
	}
	r.Use(accessLog(d.Log), recovery(d.Log), metricsMiddleware(d.Metrics), corsMiddleware(d.Config.AllowOrigins))

	h := &handler{
		cfg:       d.Config,
		detector:  d.Detector,
		responder: d.Responder,
		store:     d.Store,
		log:       d.Log.With("component", "http"),
		index:     tmpl,
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.StaticFS("/static", http.FS(static))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/", h.guard(http.StatusInternalServerError, common.ErrMsgInternal), h.IndexHandler)
	r.POST("/detect_emotion", h.guard(http.StatusBadRequest, common.ErrMsgDetectFailed), h.DetectEmotionHandler)
	r.POST("/chat", h.guard(http.StatusBadRequest, common.ErrMsgChatFailed), h.ChatHandler)
	r.GET("/emotion_stats", h.guard(http.StatusBadRequest, common.ErrMsgStatsFailed), h.EmotionStatsHandler)
	r.POST("/emotion_response", h.guard(http.StatusBadRequest, common.ErrMsgEmotionResponse), h.EmotionResponseHandler)
	r.GET("/chat_history", h.guard(http.StatusBadRequest, common.ErrMsgHistoryFailed), h.ChatHistoryHandler)

	return r, nil
}

// IndexHandler 页面。先渲染到缓冲区，失败时返回 JSON 错误
func (h *handler) IndexHandler(c *gin.Context) {
	var buf bytes.Buffer
	err := h.index.ExecuteTemplate(&buf, "index.html", gin.H{
		"Title":             h.cfg.Title,
		"CaptureIntervalMs": h.cfg.CaptureInterval.Milliseconds(),
	})
	if err != nil {
		h.log.Error("Error rendering index", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": common.ErrMsgInternal})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// DetectEmotionHandler 识别一帧画面的情绪并记录
func (h *handler) DetectEmotionHandler(c *gin.Context) {
	var req struct {
		Image  string `json:"image"`
		UserID string `json:"user_id"`
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, emotion.MaxFrameBytes)
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		h.log.Warn("Emotion detection error", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgDetectFailed})
		return
	}
	frame, err := emotion.DecodeFrame(req.Image, h.cfg.MaxFrameSide)
	if err != nil {
		h.log.Warn("Emotion detection error", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgDetectFailed})
		return
	}

	det := h.detector.Detect(c.Request.Context(), frame)
	// 写库失败只记日志
	_ = h.store.LogEmotion(context.WithoutCancel(c.Request.Context()), req.UserID, det.Emotion.String(), time.Now())
	c.JSON(http.StatusOK, gin.H{"emotion": det.Emotion})
}

// ChatHandler 按情绪生成回复
func (h *handler) ChatHandler(c *gin.Context) {
	var req struct {
		Message *string `json:"message"`
		Emotion string  `json:"emotion"`
		UserID  string  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil {
		h.log.Warn("Chat error", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgChatFailed})
		return
	}
	label := emotion.Parse(req.Emotion)

	reply := h.responder.GenerateResponse(c.Request.Context(), *req.Message, label)
	_ = h.store.LogChat(context.WithoutCancel(c.Request.Context()), req.UserID, *req.Message, reply.Text, label.String(), time.Now())
	c.JSON(http.StatusOK, gin.H{"response": reply.Text})
}

// EmotionStatsHandler 最近 7 天情绪分布，查询失败返回空结果
func (h *handler) EmotionStatsHandler(c *gin.Context) {
	userID := c.DefaultQuery("user_id", common.AnonymousUser)
	stats, err := h.store.EmotionStats(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn("Emotion stats degraded to empty", "user_id", userID, "error", err)
	}
	c.JSON(http.StatusOK, stats)
}

// EmotionResponseHandler 情绪变化时的模板追问，不调用模型
func (h *handler) EmotionResponseHandler(c *gin.Context) {
	var req struct {
		Emotion string `json:"emotion"`
		UserID  string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Emotion response error", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgEmotionResponse})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": h.responder.GenerateEmotionResponse(emotion.Parse(req.Emotion))})
}

// ChatHistoryHandler 聊天历史接口，新的在前
func (h *handler) ChatHistoryHandler(c *gin.Context) {
	userID := c.DefaultQuery("user_id", common.AnonymousUser)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(common.DefaultHistoryLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgHistoryFailed})
		return
	}
	records, err := h.store.ChatHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrMsgHistoryFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
