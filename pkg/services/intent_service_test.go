package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sales-chat-api/pkg/azure"
	"sales-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter は決定的なテキスト理解コラボレーターのスタブ
type stubCompleter struct {
	response     string
	err          error
	lastMessages []azure.ChatMessage
}

func (sc *stubCompleter) CompletionText(_ context.Context, messages []azure.ChatMessage, _ int, _ float32) (string, error) {
	sc.lastMessages = messages
	if sc.err != nil {
		return "", sc.err
	}
	return sc.response, nil
}

var testDataContext = models.DataContext{
	AvailableItems: []int{1, 2, 3, 5},
	MinDate:        "2023-05-10",
	MaxDate:        "2024-05-03",
	DataLoaded:     true,
}

func newTestExtractor(completer ChatCompleter) *IntentExtractor {
	ie := NewIntentExtractor(completer, testDataContext)
	ie.now = func() time.Time { return testNow }
	return ie
}

func TestExtractParametersCleanJSON(t *testing.T) {
	completer := &stubCompleter{
		response: `{"query_type": "prediction", "item_id": 3, "date": "2024-05-01", "confidence": 1.0, "missing_info": []}`,
	}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "Predict sales for item 3 on 2024-05-01")

	assert.Equal(t, models.QueryTypePrediction, params.QueryType)
	require.NotNil(t, params.ItemID)
	assert.Equal(t, 3, *params.ItemID)
	assert.Equal(t, "2024-05-01", params.Date)
	assert.Equal(t, 1.0, params.Confidence)
	assert.Empty(t, params.MissingInfo)
}

func TestExtractParametersJSONWrappedInProse(t *testing.T) {
	// コラボレーターが散文でJSONを包んで返しても復元できる
	completer := &stubCompleter{
		response: "Sure! Here is the extraction result:\n" +
			`{"query_type": "most_sold", "month": 5, "year": 2024, "confidence": 0.9, "missing_info": []}` +
			"\nLet me know if you need anything else.",
	}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "Which was most sold item in may")

	assert.Equal(t, models.QueryTypeMostSold, params.QueryType)
	require.NotNil(t, params.Month)
	assert.Equal(t, 5, *params.Month)
	assert.Equal(t, 0.9, params.Confidence)
}

func TestExtractParametersCollaboratorFailureSoftFails(t *testing.T) {
	completer := &stubCompleter{err: fmt.Errorf("transport error")}
	ie := newTestExtractor(completer)

	// 失敗はセッションへ伝播せず、明示的なunresolvedレコードになる
	params := ie.ExtractParameters(context.Background(), "Predict sales for item 3")

	assert.Equal(t, models.QueryTypeUnresolved, params.QueryType)
	assert.Equal(t, 0.0, params.Confidence)
	assert.ElementsMatch(t, []string{"item_id", "date"}, params.MissingInfo)
	assert.NotEmpty(t, params.ClarificationNeeded)
}

func TestExtractParametersUnparsableResponseSoftFails(t *testing.T) {
	completer := &stubCompleter{response: "I'm sorry, I don't understand the question."}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "whatever")

	assert.Equal(t, models.QueryTypeUnresolved, params.QueryType)
	assert.Equal(t, 0.0, params.Confidence)
}

func TestExtractParametersNormalizesDayFirstDate(t *testing.T) {
	// LLMが規約外の表現を返しても正規形YYYY-MM-DDに揃える
	completer := &stubCompleter{
		response: `{"query_type": "prediction", "item_id": 2, "date": "4-5-2024", "confidence": 0.8, "missing_info": []}`,
	}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "Sales for item 2 on 4-5-2024")

	assert.Equal(t, "2024-05-04", params.Date)
}

func TestExtractParametersMonthExpressionBecomesDateRange(t *testing.T) {
	completer := &stubCompleter{
		response: `{"query_type": "summary", "item_id": 2, "date": "may 2024", "confidence": 0.9, "missing_info": []}`,
	}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "Sales for item 2 whole may")

	assert.Empty(t, params.Date)
	assert.Len(t, params.DateRange, 31)
	assert.Equal(t, "2024-05-01", params.DateRange[0])
}

func TestExtractParametersMonthFromPeriodDescription(t *testing.T) {
	completer := &stubCompleter{
		response: `{"query_type": "most_sold", "period_description": "whole May", "confidence": 0.9, "missing_info": []}`,
	}
	ie := newTestExtractor(completer)

	params := ie.ExtractParameters(context.Background(), "most sold item whole may")

	require.NotNil(t, params.Month)
	assert.Equal(t, 5, *params.Month)
}

func TestExtractParametersPromptContainsDataBounds(t *testing.T) {
	completer := &stubCompleter{
		response: `{"query_type": "prediction", "confidence": 0.0, "missing_info": ["item_id", "date"]}`,
	}
	ie := newTestExtractor(completer)

	ie.ExtractParameters(context.Background(), "hello")

	require.Len(t, completer.lastMessages, 2)
	system := completer.lastMessages[0].Content

	// 抽出プロンプトにはアイテム一覧・日付範囲・現在日付・実例が入る
	assert.Contains(t, system, "[1, 2, 3, 5]")
	assert.Contains(t, system, "2023-05-10 to 2024-05-03")
	assert.Contains(t, system, "Current date: 2024-06-15")
	assert.Contains(t, system, "DD-MM-YYYY")
	assert.Contains(t, system, `"most_sold"`)
	assert.Equal(t, "hello", completer.lastMessages[1].Content)
}

func TestExtractFirstJSONObject(t *testing.T) {
	// ネストしたオブジェクトも対応の取れた位置まで読む
	obj, ok := extractFirstJSONObject(`prefix {"a": {"b": 1}, "c": 2} suffix`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}, "c": 2}`, obj)

	// 文字列リテラル中の波括弧は数えない
	obj, ok = extractFirstJSONObject(`{"text": "braces } inside { string"}`)
	assert.True(t, ok)
	assert.Equal(t, `{"text": "braces } inside { string"}`, obj)

	_, ok = extractFirstJSONObject("no json here")
	assert.False(t, ok)

	// 閉じられていないオブジェクトは不採用
	_, ok = extractFirstJSONObject(`{"a": 1`)
	assert.False(t, ok)
}
