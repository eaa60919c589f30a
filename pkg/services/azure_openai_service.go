package services

import (
	"context"
	"fmt"
	"log"

	"sales-chat-api/pkg/azure"
	"sales-chat-api/pkg/models"
)

// AzureOpenAIService Azure OpenAI API サービス。
// 意図抽出（ChatCompleter経由）と応答生成の両方で使う。
type AzureOpenAIService struct {
	client *azure.OpenAIClient

	// 応答生成プロンプトの差し替え（空なら組み込みを使用）
	responsePrompt string
}

// NewAzureOpenAIService 新しいAzure OpenAI サービスを作成
func NewAzureOpenAIService(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName string) *AzureOpenAIService {
	return &AzureOpenAIService{
		client: azure.NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName),
	}
}

// SetResponsePrompt は応答生成用システムプロンプトの冒頭部を差し替えます。
func (aos *AzureOpenAIService) SetResponsePrompt(prompt string) {
	aos.responsePrompt = prompt
}

// CompletionText はChatCompleterインターフェースの実装。
func (aos *AzureOpenAIService) CompletionText(ctx context.Context, messages []azure.ChatMessage, maxTokens int, temperature float32) (string, error) {
	return aos.client.CompletionText(ctx, messages, maxTokens, temperature)
}

// CreateEmbedding はテキストのベクトル表現を生成します。
func (aos *AzureOpenAIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return aos.client.CreateEmbedding(ctx, text)
}

// GenerateSalesResponse は予測結果を自然な会話文へ整形します。
// 文面は純粋に装飾であり正しさには影響しないため、生成に失敗したら
// 生の結果文字列をそのまま返すだけでよい。
func (aos *AzureOpenAIService) GenerateSalesResponse(ctx context.Context, predictionResult, userQuery string, params models.QueryParameters, relevantHistory []string) string {
	itemDesc := "unspecified"
	if params.ItemID != nil {
		itemDesc = fmt.Sprintf("%d", *params.ItemID)
	}

	preamble := aos.responsePrompt
	if preamble == "" {
		preamble = `You are a helpful sales prediction assistant.

Guidelines:
1. Be conversational and helpful
2. Explain the prediction clearly
3. Mention both actual and predicted values if available
4. Add context about the prediction (e.g., if it's higher/lower than actual)
5. Offer to help with more predictions
6. Keep it concise but informative

Avoid technical jargon and make it user-friendly.`
	}

	systemPrompt := fmt.Sprintf(`%s

Generate a natural, conversational response based on the prediction results.

User's original query: %q
Extracted parameters: Item ID %s, Date %s
Prediction result: %q`, preamble, userQuery, itemDesc, params.Date, predictionResult)

	// 関連する過去のやり取りがあれば文脈として渡す
	if len(relevantHistory) > 0 {
		systemPrompt += "\n\nRelevant past conversation:\n"
		for i, h := range relevantHistory {
			systemPrompt += fmt.Sprintf("%d. %s\n", i+1, h)
		}
	}

	messages := []azure.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Generate response for: %s", predictionResult)},
	}

	response, err := aos.client.CompletionText(ctx, messages, 200, 0.7)
	if err != nil {
		log.Printf("⚠️ 応答生成に失敗しました。生の結果を返します: %v", err)
		return fmt.Sprintf("Here are your prediction results: %s", predictionResult)
	}
	return response
}
