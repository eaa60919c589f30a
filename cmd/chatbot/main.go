package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	config "sales-chat-api/configs"
	"sales-chat-api/pkg/services"

	"github.com/joho/godotenv"
)

// 対話ループを終了するキーワード
var exitKeywords = map[string]bool{
	"quit": true,
	"exit": true,
	"bye":  true,
}

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()

	if cfg.AzureOpenAIAPIKey == "" {
		fmt.Println("❌ Azure OpenAI API key not found or not configured!")
		fmt.Println("\n📝 Setup instructions:")
		fmt.Println("1. Edit the .env file in this directory")
		fmt.Println("2. Set AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT")
		return
	}

	// サービスの初期化
	datasetService := services.NewDatasetService(cfg.SalesDataPath)
	azureOpenAIService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)
	predictorService := services.NewPredictorService(cfg.PredictorURL)
	analyticsService := services.NewAnalyticsService(datasetService, predictorService)
	extractor := services.NewIntentExtractor(azureOpenAIService, datasetService.Context())

	// CLIは1プロセス1セッション。会話メモリーは使わない。
	chatbot := services.NewChatbotService(
		extractor,
		analyticsService,
		azureOpenAIService,
		nil,
		datasetService.Context(),
		cfg.ConfidenceThreshold,
	)

	fmt.Println("🤖 Sales Prediction Chatbot initialized successfully!")
	fmt.Println(chatbot.GetHelpMessage())
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("\n💬 Start chatting! (Type 'help' for assistance, 'quit' to exit)")

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("\n👤 You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":
			continue
		case exitKeywords[strings.ToLower(input)]:
			fmt.Println("👋 Goodbye! Thanks for using the Sales Prediction Chatbot!")
			return
		case strings.ToLower(input) == "help" || input == "?":
			fmt.Println(chatbot.GetHelpMessage())
			continue
		}

		fmt.Print("🤖 Bot: ")
		fmt.Println(chatbot.HandleQuery(ctx, input))
	}

	fmt.Println("\n👋 Goodbye! Thanks for using the Sales Prediction Chatbot!")
}
