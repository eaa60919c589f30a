package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"sales-chat-api/pkg/azure"
	"sales-chat-api/pkg/models"
)

// ChatCompleter は意図抽出・応答生成が依存する外部テキスト理解コラボレーターの
// 最小契約。テストでは決定的なスタブを注入する。
type ChatCompleter interface {
	CompletionText(ctx context.Context, messages []azure.ChatMessage, maxTokens int, temperature float32) (string, error)
}

// IntentExtractor は自由記述クエリから構造化パラメータを抽出します。
type IntentExtractor struct {
	completer ChatCompleter
	dataCtx   models.DataContext
	now       func() time.Time
}

// NewIntentExtractor は新しい抽出器を作成します。
// dataCtxは抽出プロンプトに埋め込まれ、抽出結果の範囲を制約します。
func NewIntentExtractor(completer ChatCompleter, dataCtx models.DataContext) *IntentExtractor {
	return &IntentExtractor{
		completer: completer,
		dataCtx:   dataCtx,
		now:       time.Now,
	}
}

// buildSystemPrompt は抽出指示を組み立てます。
// 利用可能なアイテムID・日付範囲・現在日付と、各クエリ種別および
// 日付表記規約ごとの実例を含める。
func (ie *IntentExtractor) buildSystemPrompt() string {
	items := make([]string, len(ie.dataCtx.AvailableItems))
	for i, id := range ie.dataCtx.AvailableItems {
		items[i] = fmt.Sprintf("%d", id)
	}
	currentDate := ie.now().Format("2006-01-02")

	var b strings.Builder
	b.WriteString("You are a parameter extraction assistant for a sales prediction and analytics system.\n\n")
	b.WriteString(fmt.Sprintf("Available item IDs: [%s]\n", strings.Join(items, ", ")))
	b.WriteString(fmt.Sprintf("Available date range: %s to %s\n", ie.dataCtx.MinDate, ie.dataCtx.MaxDate))
	b.WriteString(fmt.Sprintf("Current date: %s\n\n", currentDate))
	b.WriteString(`Analyze the user query and determine the query type and extract relevant parameters:

QUERY TYPES:
1. "prediction" - User wants to predict sales for specific item and date
2. "analysis" - User wants to analyze historical sales data
3. "most_sold" - User wants to find the most sold item in a period
4. "summary" - User wants sales summary for item/period

Extract these parameters:
- query_type: one of the above types
- item_id: integer (if specified)
- date: YYYY-MM-DD format (if single date)
- date_range: list of dates in YYYY-MM-DD format
- month: month number (1-12) if mentioned
- year: year if mentioned
- period_description: natural description of time period

For date formats:
- "4-5-2024" should be interpreted as 4th May 2024 (DD-MM-YYYY)
- "whole may" or "entire may" means all days in May
- "may 2024" means May 2024
- Handle relative dates like "tomorrow", "next week"

Return ONLY a JSON object:
{
    "query_type": "<prediction|analysis|most_sold|summary>",
    "item_id": <integer or null>,
    "date": "<YYYY-MM-DD or null>",
    "date_range": ["YYYY-MM-DD", ...] or null,
    "month": <1-12 or null>,
    "year": <year or null>,
    "period_description": "<description or null>",
    "confidence": <float between 0-1>,
    "missing_info": ["list of missing required parameters"],
    "clarification_needed": "<question to ask user if parameters unclear>"
}

Examples:
- "Predict sales for item 3 on 2024-05-01" -> {"query_type": "prediction", "item_id": 3, "date": "2024-05-01", "confidence": 1.0, "missing_info": []}
- "Which was most sold item in may" -> {"query_type": "most_sold", "month": 5, "period_description": "May", "confidence": 0.9, "missing_info": []}
- "Sales for item 2 whole may" -> {"query_type": "summary", "item_id": 2, "month": 5, "period_description": "whole May", "confidence": 0.9, "missing_info": []}
- "on 4 may" -> {"query_type": "prediction", "date": "` + fmt.Sprintf("%d", ie.now().Year()) + `-05-04", "confidence": 0.7, "missing_info": ["item_id"], "clarification_needed": "Which item would you like to predict sales for on May 4th?"}
- "4-5-2024" -> {"query_type": "prediction", "date": "2024-05-04", "confidence": 0.8, "missing_info": ["item_id"], "clarification_needed": "Which item would you like to predict sales for on May 4th, 2024?"}
`)
	return b.String()
}

// ExtractParameters はユーザー発話を構造化パラメータへ変換します。
// コラボレーター呼び出しや解析がどのように失敗しても、例外的なエラーは
// 外へ伝播させず、明示的な「unresolved」レコードへソフトフェイルする。
func (ie *IntentExtractor) ExtractParameters(ctx context.Context, userQuery string) models.QueryParameters {
	messages := []azure.ChatMessage{
		{Role: "system", Content: ie.buildSystemPrompt()},
		{Role: "user", Content: userQuery},
	}

	content, err := ie.completer.CompletionText(ctx, messages, 400, 0.1)
	if err != nil {
		log.Printf("❌ パラメータ抽出に失敗しました: %v", err)
		return unresolvedParameters()
	}

	params, err := parseParameterJSON(content)
	if err != nil {
		log.Printf("❌ 抽出レスポンスの解析に失敗しました: %v", err)
		return unresolvedParameters()
	}

	// 日付系フィールドを正規形へ寄せる。LLMが規約外の表現を返しても、
	// Dispatcherに届く時点ではYYYY-MM-DD以外は残らない。
	ie.normalizeDateFields(&params, userQuery)
	return params
}

// parseParameterJSON はレスポンス本文からQueryParametersを復元します。
// まず全体をそのまま解析し、失敗したら本文中に埋め込まれた最初の
// 整形済みJSONオブジェクトを波括弧スキャンで探す。
func parseParameterJSON(content string) (models.QueryParameters, error) {
	content = strings.TrimSpace(content)

	var params models.QueryParameters
	if err := json.Unmarshal([]byte(content), &params); err == nil {
		return params, nil
	}

	obj, ok := extractFirstJSONObject(content)
	if !ok {
		return models.QueryParameters{}, fmt.Errorf("レスポンスにJSONオブジェクトが見つかりません")
	}
	if err := json.Unmarshal([]byte(obj), &params); err != nil {
		return models.QueryParameters{}, fmt.Errorf("埋め込みJSONの解析に失敗: %w", err)
	}
	return params, nil
}

// extractFirstJSONObject は周囲に散文が混ざったテキストから、最初に
// 対応の取れた {...} ブロックを切り出します。文字列リテラル中の
// 波括弧は数えない。
func extractFirstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// normalizeDateFields はdate/date_rangeを正規形YYYY-MM-DDへ揃えます。
// 正規形でない値はDate Normalizerへ通し、それでも解釈できなければ捨てる。
func (ie *IntentExtractor) normalizeDateFields(params *models.QueryParameters, userQuery string) {
	now := ie.now()

	if params.Date != "" && !IsCanonicalDate(params.Date) {
		if dates := NormalizeDate(params.Date, now); len(dates) == 1 {
			params.Date = dates[0]
		} else if len(dates) > 1 {
			// 単一日付のつもりが期間だった場合はdate_rangeへ移す
			params.DateRange = dates
			params.Date = ""
		} else {
			params.Date = ""
		}
	}

	if len(params.DateRange) > 0 {
		normalized := make([]string, 0, len(params.DateRange))
		for _, d := range params.DateRange {
			if IsCanonicalDate(d) {
				normalized = append(normalized, d)
				continue
			}
			normalized = append(normalized, NormalizeDate(d, now)...)
		}
		params.DateRange = normalized
	}

	// 期間表現だけが取れていてmonthが空なら、表現から補完を試みる
	if params.Month == nil && params.PeriodDescription != "" {
		if month, ok := findMonthName(strings.ToLower(params.PeriodDescription)); ok {
			m := int(month)
			params.Month = &m
		}
	}
}

// unresolvedParameters は抽出失敗時のソフトフェイル用レコードを返します。
func unresolvedParameters() models.QueryParameters {
	return models.QueryParameters{
		QueryType:           models.QueryTypeUnresolved,
		Confidence:          0.0,
		MissingInfo:         []string{"item_id", "date"},
		ClarificationNeeded: "I couldn't understand your request. Please specify the item ID and date for sales prediction.",
	}
}
