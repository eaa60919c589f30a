package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"sales-chat-api/pkg/models"

	"github.com/google/uuid"
)

// ParameterExtractor は意図抽出レイヤーの契約。Dispatcherのテストでは
// 決定的なスタブを注入する。
type ParameterExtractor interface {
	ExtractParameters(ctx context.Context, userQuery string) models.QueryParameters
}

// ResponseRenderer は予測結果を自然言語へ整形するコラボレーターの契約。
// 文面は装飾であり正しさに影響しない。
type ResponseRenderer interface {
	GenerateSalesResponse(ctx context.Context, predictionResult, userQuery string, params models.QueryParameters, relevantHistory []string) string
}

// ChatbotService は1セッション分のクエリディスパッチャー。
// 受理 → ゲート → 検証 → 実行 の順で1クエリずつ処理し、呼び出しをまたぐ
// 状態は会話履歴だけ。複数セッションではセッションごとに1インスタンス。
type ChatbotService struct {
	extractor ParameterExtractor
	analytics *AnalyticsService
	renderer  ResponseRenderer
	memory    *VectorStoreService // 会話メモリー（任意、nilなら無効）
	dataCtx   models.DataContext
	threshold float64
	sessionID string
	history   []models.ConversationTurn
	now       func() time.Time
}

// NewChatbotService は新しいセッションを作成します。
// rendererがnilの場合、予測結果は整形されずそのまま返される。
func NewChatbotService(extractor ParameterExtractor, analytics *AnalyticsService, renderer ResponseRenderer, memory *VectorStoreService, dataCtx models.DataContext, confidenceThreshold float64) *ChatbotService {
	return &ChatbotService{
		extractor: extractor,
		analytics: analytics,
		renderer:  renderer,
		memory:    memory,
		dataCtx:   dataCtx,
		threshold: confidenceThreshold,
		sessionID: uuid.New().String(),
		now:       time.Now,
	}
}

// SessionID はこのセッションの識別子を返します。
func (cs *ChatbotService) SessionID() string {
	return cs.sessionID
}

// HandleQuery はユーザーのクエリを端から端まで処理します。
// どの失敗もセッションを終了させず、ユーザー向けメッセージとして返る。
func (cs *ChatbotService) HandleQuery(ctx context.Context, userQuery string) string {
	log.Printf("💬 クエリを処理します: %s", userQuery)

	params := cs.extractor.ExtractParameters(ctx, userQuery)

	// ゲート: 信頼度不足または必須情報の欠落は実行に進めない
	if params.Confidence < cs.threshold || len(params.MissingInfo) > 0 {
		if params.ClarificationNeeded != "" {
			return params.ClarificationNeeded
		}
		return "I need more information. Please specify your request clearly."
	}

	return cs.dispatch(ctx, userQuery, params)
}

// dispatch は検証済みゲートを通過したパラメータを対応する分析操作へ振り分けます。
// 操作内部の予期しない失敗はこの境界で回収し、セッションは継続する。
func (cs *ChatbotService) dispatch(ctx context.Context, userQuery string, params models.QueryParameters) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ クエリ処理中に予期しないエラーが発生しました: %v", r)
			response = "I encountered an error while processing your request. Please try again."
		}
	}()

	switch params.QueryType {
	case models.QueryTypeMostSold:
		return cs.analytics.FindMostSoldItem(params.Month, cs.resolveYear(params))

	case models.QueryTypeSummary:
		dates, ok := cs.resolveDates(params)
		if !ok {
			return "Please specify a date or period for the summary."
		}
		return cs.analytics.GetSalesSummary(params.ItemID, dates)

	case models.QueryTypeAnalysis:
		return cs.analytics.AnalyzePeriod(params.ItemID, params.Month, cs.resolveYear(params))

	case models.QueryTypePrediction:
		return cs.handlePrediction(ctx, userQuery, params)

	default:
		// unresolvedは信頼度0でゲートに止まるため通常ここへは来ない
		if params.ClarificationNeeded != "" {
			return params.ClarificationNeeded
		}
		return "I need more information. Please specify your request clearly."
	}
}

// resolveYear は年の未指定を処理時点の年で補います。
func (cs *ChatbotService) resolveYear(params models.QueryParameters) *int {
	if params.Year != nil {
		return params.Year
	}
	year := cs.now().Year()
	return &year
}

// resolveDates はsummary向けの具体的な日付集合を導出します。
// 月指定 → 実日数で全日展開、単一日付 → 1要素、明示的な範囲 → そのまま。
func (cs *ChatbotService) resolveDates(params models.QueryParameters) ([]string, bool) {
	if params.Month != nil {
		year := cs.resolveYear(params)
		dates := ExpandMonthDates(*year, *params.Month)
		if len(dates) > 0 {
			return dates, true
		}
	}
	if params.Date != "" && IsCanonicalDate(params.Date) {
		return []string{params.Date}, true
	}
	if len(params.DateRange) > 0 {
		return params.DateRange, true
	}
	return nil, false
}

// handlePrediction は予測クエリの型固有の検証と実行を行います。
func (cs *ChatbotService) handlePrediction(ctx context.Context, userQuery string, params models.QueryParameters) string {
	if params.ItemID == nil {
		return "Please specify an item ID for the prediction."
	}
	if !cs.itemAvailable(*params.ItemID) {
		return fmt.Sprintf("Item ID %d is not available. Available items: %s",
			*params.ItemID, sampleItemList(cs.dataCtx.AvailableItems, 10))
	}
	if params.Date == "" {
		return "Please specify a date for the prediction."
	}
	if !IsCanonicalDate(params.Date) {
		return "Invalid date format. Please use YYYY-MM-DD format."
	}

	result, err := cs.analytics.PredictSales(ctx, *params.ItemID, params.Date)
	if err != nil {
		log.Printf("❌ 予測の実行に失敗しました: %v", err)
		return "I encountered an error while processing your request. Please try again."
	}

	// 会話メモリーから関連する過去のやり取りを取得（無効時はスキップ）
	var relevantHistory []string
	if cs.memory != nil {
		entries, err := cs.memory.SearchConversationHistory(ctx, userQuery, cs.sessionID, 3)
		if err != nil {
			log.Printf("⚠️ 会話履歴の検索に失敗しました: %v", err)
		} else {
			for _, e := range entries {
				relevantHistory = append(relevantHistory, fmt.Sprintf("[%s] %s: %s", e.Timestamp, e.Role, e.Message))
			}
		}
	}

	response := result
	if cs.renderer != nil {
		response = cs.renderer.GenerateSalesResponse(ctx, result, userQuery, params, relevantHistory)
	}

	// 予測系の成功したやり取りだけを履歴に積む。分析系クエリは履歴に
	// 関与しない（履歴は「明日はどう？」のような追い質問のためにある）。
	cs.record(ctx, models.ConversationTurn{
		Query:      userQuery,
		Parameters: params,
		Result:     result,
		Response:   response,
	})

	return response
}

// itemAvailable はDataContextのアイテム一覧に対する所属チェック。
func (cs *ChatbotService) itemAvailable(itemID int) bool {
	for _, id := range cs.dataCtx.AvailableItems {
		if id == itemID {
			return true
		}
	}
	return false
}

// record は会話ターンを追記し、会話メモリーが有効なら保存も行います。
func (cs *ChatbotService) record(ctx context.Context, turn models.ConversationTurn) {
	cs.history = append(cs.history, turn)

	if cs.memory == nil {
		return
	}
	itemID := 0
	if turn.Parameters.ItemID != nil {
		itemID = *turn.Parameters.ItemID
	}
	entry := models.ChatHistoryEntry{
		ID:        uuid.New().String(),
		SessionID: cs.sessionID,
		Role:      "user",
		Message:   fmt.Sprintf("%s -> %s", turn.Query, turn.Result),
		ItemID:    itemID,
		Date:      turn.Parameters.Date,
		Timestamp: cs.now().Format(time.RFC3339),
		CreatedAt: cs.now(),
	}
	if err := cs.memory.SaveConversationEntry(ctx, entry); err != nil {
		log.Printf("⚠️ 会話メモリーへの保存に失敗しました: %v", err)
	}
}

// History は会話履歴を読み取り専用のコピーで返します。
// 追記のみで、間引き・重複排除・容量制限は行わない。
func (cs *ChatbotService) History() []models.ConversationTurn {
	return append([]models.ConversationTurn(nil), cs.history...)
}

// GetHelpMessage はチャットボットの能力一覧を返します。
func (cs *ChatbotService) GetHelpMessage() string {
	var b strings.Builder
	b.WriteString("🤖 **AI Sales Agent Help**\n\n")
	b.WriteString("I can help you with various sales-related queries!\n\n")
	b.WriteString(fmt.Sprintf("**Available Items:** %s\n", sampleItemList(cs.dataCtx.AvailableItems, 10)))
	b.WriteString(fmt.Sprintf("**Date Range:** %s to %s\n\n", cs.dataCtx.MinDate, cs.dataCtx.MaxDate))
	b.WriteString(`**What I can do:**

🔮 **Sales Predictions:**
• "Predict sales for item 3 on 2024-05-01"
• "What are the sales for item 5 tomorrow?"
• "Sales for item 2 on 4-5-2024"

📊 **Sales Analysis:**
• "Which was the most sold item in May?"
• "Show me sales summary for item 2 in May"
• "Total sales for item 3 whole May"

🏆 **Top Performers:**
• "Most sold item in May 2024"
• "Which item sold the most in May?"

**Date Formats I understand:**
• Standard: 2024-05-01
• Alternative: 4-5-2024 (DD-MM-YYYY)
• Natural: "whole May", "entire May", "May 2024"
• Relative: "tomorrow", "next week"

Just ask naturally and I'll understand! 😊
`)
	return b.String()
}

// sampleItemList は先頭limit件のアイテムIDをカンマ区切りで並べ、
// 残りがあれば "..." を付けます。
func sampleItemList(items []int, limit int) string {
	parts := make([]string, 0, limit)
	for i, id := range items {
		if i >= limit {
			break
		}
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	s := strings.Join(parts, ", ")
	if len(items) > limit {
		s += "..."
	}
	return s
}
