package main

import (
	"log"
	"net/http"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/handlers"
	"sales-chat-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService(cfg.MaxRequestLogs)
	datasetService := services.NewDatasetService(cfg.SalesDataPath)
	dataCtx := datasetService.Context()

	azureOpenAIService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)

	// 応答プロンプトの差し替えは任意。ファイルが無ければ組み込みを使う。
	if promptCfg, err := config.LoadResponsePrompt(); err == nil {
		azureOpenAIService.SetResponsePrompt(promptCfg.BuildSystemPrompt())
	}

	// 会話メモリーは任意。Qdrantが設定されていなければ無効のまま続行する。
	var vectorStoreService *services.VectorStoreService
	if cfg.QdrantURL != "" {
		vs, err := services.NewVectorStoreService(azureOpenAIService, cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			log.Printf("⚠️ VectorStoreServiceの初期化に失敗しました。会話メモリーなしで続行します: %v", err)
		} else {
			vectorStoreService = vs
		}
	}

	predictorService := services.NewPredictorService(cfg.PredictorURL)
	analyticsService := services.NewAnalyticsService(datasetService, predictorService)

	// セッションごとに独立したChatbotServiceを生成するファクトリー
	newSession := func() *services.ChatbotService {
		extractor := services.NewIntentExtractor(azureOpenAIService, datasetService.Context())
		return services.NewChatbotService(
			extractor,
			analyticsService,
			azureOpenAIService,
			vectorStoreService,
			datasetService.Context(),
			cfg.ConfidenceThreshold,
		)
	}

	// ハンドラーの初期化
	chatHandler := handlers.NewChatHandler(newSession, dataCtx, cfg.MaxConversationHistory)
	adminHandler := handlers.NewAdminHandler(cfg)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// チャットAPI
		v1.POST("/chat", chatHandler.Chat)
		v1.GET("/chat/history", chatHandler.GetHistory)
		v1.GET("/capabilities", chatHandler.GetCapabilities)
		v1.GET("/data/context", chatHandler.GetDataContext)

		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Printf("Starting Sales Chat-API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
