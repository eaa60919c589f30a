//go:build ignore

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/services"

	"github.com/joho/godotenv"
)

// 会話履歴コレクションのクリーンアップツール。
// -session でセッション単位、指定なしで全履歴を削除する。
func main() {
	sessionID := flag.String("session", "", "削除対象のセッションID（空なら全履歴）")
	yes := flag.Bool("yes", false, "確認プロンプトをスキップ")
	flag.Parse()

	log.Println("🧹 会話履歴のクリーンアップを開始します...")

	// .env.localファイルを優先的に読み込み（本番環境用）
	if err := godotenv.Load(".env.local"); err != nil {
		log.Printf("Warning: .env.local file not found, trying .env: %v", err)
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found: %v", err)
		}
	}

	cfg := config.LoadConfig()
	if cfg.QdrantURL == "" {
		log.Fatal("QDRANT_URL が設定されていません。")
	}

	log.Printf("接続先Qdrant: %s", cfg.QdrantURL)

	openaiService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)

	vectorStoreService, err := services.NewVectorStoreService(openaiService, cfg.QdrantURL, cfg.QdrantAPIKey)
	if err != nil {
		log.Fatalf("VectorStoreサービスの初期化に失敗: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	collections, err := vectorStoreService.ListCollections(ctx)
	if err != nil {
		log.Fatalf("コレクション一覧の取得に失敗: %v", err)
	}
	log.Printf("📋 全コレクション数: %d", len(collections))

	target := "すべての会話履歴"
	if *sessionID != "" {
		target = fmt.Sprintf("セッション '%s' の会話履歴", *sessionID)
	}

	if !*yes {
		fmt.Printf("\n❓ %sを削除してもよろしいですか？ (yes/no): ", target)
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(strings.TrimSpace(response)) != "yes" {
			log.Println("キャンセルしました。")
			return
		}
	}

	if err := vectorStoreService.DeleteSessionEntries(ctx, *sessionID); err != nil {
		log.Fatalf("会話履歴の削除に失敗: %v", err)
	}

	log.Printf("✅ %sを削除しました。", target)
}
