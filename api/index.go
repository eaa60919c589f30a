package handler

import (
	"log"
	"net/http"
	"sync"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/handlers"
	"sales-chat-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		log.Printf("🟢 [setupApp] Initializing Sales Chat-API")

		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

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

		if promptCfg, err := config.LoadResponsePrompt(); err == nil {
			azureOpenAIService.SetResponsePrompt(promptCfg.BuildSystemPrompt())
		}

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

		chatHandler := handlers.NewChatHandler(newSession, dataCtx, cfg.MaxConversationHistory)
		adminHandler := handlers.NewAdminHandler(cfg)
		monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

		// ミドルウェアの登録
		r.Use(monitoringService.LoggingMiddleware())
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		r.Use(cors.New(corsConfig))

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

		v1 := r.Group("/api/v1")
		v1.Use(authMiddleware(cfg.APIKey))
		{
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

		app = r
	})
	return app
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	app := setupApp()
	app.ServeHTTP(w, r)
}
