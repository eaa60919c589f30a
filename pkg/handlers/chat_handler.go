package handlers

import (
	"net/http"
	"sync"
	"time"

	"sales-chat-api/pkg/models"
	"sales-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// SessionFactory はセッションごとのChatbotServiceを作成します。
// DataContextと会話履歴はセッション間で共有しない。
type SessionFactory func() *services.ChatbotService

// ChatHandler チャットAPIのハンドラー
type ChatHandler struct {
	mu         sync.Mutex
	sessions   map[string]*services.ChatbotService
	newSession SessionFactory
	dataCtx    models.DataContext
	maxHistory int
}

// NewChatHandler 新しいチャットハンドラーを作成
func NewChatHandler(newSession SessionFactory, dataCtx models.DataContext, maxHistory int) *ChatHandler {
	return &ChatHandler{
		sessions:   make(map[string]*services.ChatbotService),
		newSession: newSession,
		dataCtx:    dataCtx,
		maxHistory: maxHistory,
	}
}

// sessionFor はセッションIDに対応するChatbotServiceを返します。
// 未知のIDや空のIDには新しいセッションを割り当てる。
func (ch *ChatHandler) sessionFor(sessionID string) *services.ChatbotService {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if sessionID != "" {
		if bot, ok := ch.sessions[sessionID]; ok {
			return bot
		}
	}
	bot := ch.newSession()
	ch.sessions[bot.SessionID()] = bot
	return bot
}

// Chat は自由記述のクエリを処理して応答を返します。
func (ch *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	bot := ch.sessionFor(req.SessionID)
	response := bot.HandleQuery(c.Request.Context(), req.Message)

	c.JSON(http.StatusOK, models.ChatResponse{
		Response:  response,
		SessionID: bot.SessionID(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// GetHistory はセッションの会話履歴を返します。
// コア側の履歴は無制限なので、応答整形時にのみ設定値で切り詰める。
func (ch *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id が必要です。"})
		return
	}

	ch.mu.Lock()
	bot, ok := ch.sessions[sessionID]
	ch.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "セッションが見つかりません。"})
		return
	}

	history := bot.History()
	if ch.maxHistory > 0 && len(history) > ch.maxHistory {
		history = history[len(history)-ch.maxHistory:]
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
		"history":    history,
		"count":      len(history),
	})
}

// GetCapabilities はチャットボットの能力一覧を返します。
func (ch *ChatHandler) GetCapabilities(c *gin.Context) {
	bot := ch.newSession()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"help":    bot.GetHelpMessage(),
	})
}

// GetDataContext は読み込み済みデータセットのサマリーを返します。
func (ch *ChatHandler) GetDataContext(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"context": ch.dataCtx,
	})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
// メンテナンスモード中は503を返す。
func HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"message": "Server is in maintenance mode",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "Sales Chat-API",
	})
}
