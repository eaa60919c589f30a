package main

import (
	"context"
	"log"
	"time"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/models"
	"sales-chat-api/pkg/services"

	"github.com/joho/godotenv"
)

// 予測モデルサーバーへの疎通確認ツール。
// サンプルの特徴量で /predict を1回呼び、応答を表示する。
func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.LoadConfig()
	log.Println("INFO: 予測モデルサーバー:", cfg.PredictorURL)

	predictor := services.NewPredictorService(cfg.PredictorURL)

	// 2024-05-01 (水曜) のアイテム3を想定したサンプル特徴量
	features := models.PredictionFeatures{
		ItemID:         3,
		Day:            1,
		Month:          5,
		Year:           2024,
		DayNum:         122,
		IsWeekend:      0,
		FestivalEnc:    0.0,
		Rolling3DayAvg: 40.5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("INFO: リクエストを送信します...")
	prediction, err := predictor.Predict(ctx, features)
	if err != nil {
		log.Fatalf("FATAL: 予測リクエストの実行に失敗: %v", err)
	}

	log.Printf("--- レスポンス ---")
	log.Printf("予測値: %.2f", prediction)
	log.Println("SUCCESS: 正常に応答が返ってきました。")
}
