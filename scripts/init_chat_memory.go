//go:build ignore

package main

import (
	"context"
	"log"
	"time"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/models"
	"sales-chat-api/pkg/services"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// 会話メモリーの初期化とスモークテスト。
// コレクションを作成し、プローブエントリーの保存・検索・削除までを
// 一巡して、埋め込みとQdrantの両方が使える状態かを確認する。
func main() {
	log.Println("🚀 会話メモリーの初期化を開始します...")

	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.LoadConfig()
	if cfg.QdrantURL == "" {
		log.Fatal("QDRANT_URL が設定されていません。")
	}

	openaiService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)

	// 初期化の中でコレクションの存在確認と作成が走る
	vectorStoreService, err := services.NewVectorStoreService(openaiService, cfg.QdrantURL, cfg.QdrantAPIKey)
	if err != nil {
		log.Fatalf("VectorStoreサービスの初期化に失敗: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// プローブ用のセッションIDで保存→検索→削除を一巡させる
	probeSession := "init-probe-" + uuid.New().String()
	probe := models.ChatHistoryEntry{
		SessionID: probeSession,
		Role:      "user",
		Message:   "Predict sales for item 3 on 2024-05-01 -> Actual: 42, Predicted: 38",
		ItemID:    3,
		Date:      "2024-05-01",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	log.Println("📄 プローブエントリーを保存します...")
	if err := vectorStoreService.SaveConversationEntry(ctx, probe); err != nil {
		log.Fatalf("プローブエントリーの保存に失敗: %v", err)
	}

	log.Println("🔍 プローブエントリーを検索します...")
	entries, err := vectorStoreService.SearchConversationHistory(ctx, "sales prediction for item 3", probeSession, 1)
	if err != nil {
		log.Fatalf("プローブエントリーの検索に失敗: %v", err)
	}
	if len(entries) == 0 {
		log.Fatal("プローブエントリーが検索結果に含まれていません。")
	}

	log.Println("🗑️ プローブエントリーを削除します...")
	if err := vectorStoreService.DeleteSessionEntries(ctx, probeSession); err != nil {
		log.Fatalf("プローブエントリーの削除に失敗: %v", err)
	}

	log.Println("✅ 会話メモリーの初期化が完了しました。")
}
