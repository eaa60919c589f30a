package models

import "time"

// QueryType は抽出された問い合わせの種別
type QueryType string

const (
	QueryTypePrediction QueryType = "prediction" // 特定アイテム・日付の売上予測
	QueryTypeAnalysis   QueryType = "analysis"   // 期間を指定した履歴分析
	QueryTypeMostSold   QueryType = "most_sold"  // 最多販売アイテムの特定
	QueryTypeSummary    QueryType = "summary"    // アイテム／期間の売上サマリー
	// QueryTypeUnresolved は抽出そのものが失敗したことを表す明示的な種別。
	// predictionへ黙ってフォールバックすると曖昧さが隠れてしまうため、
	// 失敗は失敗として区別する。
	QueryTypeUnresolved QueryType = "unresolved"
)

// SalesRecord represents one row of the historical sales dataset.
// Feature columns are precomputed in the source file and are only
// forwarded to the prediction model, never recalculated here.
type SalesRecord struct {
	ItemID         int       `json:"item_id"`
	OrderDate      time.Time `json:"order_date"`
	TotalSold      int       `json:"total_sold"`
	Day            int       `json:"day"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	DayNum         int       `json:"day_num"`
	IsWeekend      int       `json:"is_weekend"`
	FestivalEnc    float64   `json:"festival_enc"`
	Rolling3DayAvg float64   `json:"rolling_3day_avg"`
}

// DataContext は読み込み済みデータセットの派生サマリー。
// 初期化時に一度だけ構築され、以降は読み取り専用。
type DataContext struct {
	AvailableItems []int  `json:"available_items"` // 昇順ソート済み
	MinDate        string `json:"min_date"`        // YYYY-MM-DD
	MaxDate        string `json:"max_date"`        // YYYY-MM-DD
	DataLoaded     bool   `json:"data_loaded"`     // falseなら劣化モード
}

// QueryParameters はLLMによる意図抽出の構造化された結果。
// 1クエリごとに生成され、Dispatcherが一度だけ読み取る。
type QueryParameters struct {
	QueryType           QueryType `json:"query_type"`
	ItemID              *int      `json:"item_id,omitempty"`
	Date                string    `json:"date,omitempty"`       // YYYY-MM-DD
	DateRange           []string  `json:"date_range,omitempty"` // YYYY-MM-DDの列
	Month               *int      `json:"month,omitempty"`      // 1-12
	Year                *int      `json:"year,omitempty"`
	PeriodDescription   string    `json:"period_description,omitempty"`
	Confidence          float64   `json:"confidence"`
	MissingInfo         []string  `json:"missing_info,omitempty"`
	ClarificationNeeded string    `json:"clarification_needed,omitempty"`
}

// ConversationTurn は処理済みの予測系やり取り1回分
type ConversationTurn struct {
	Query      string          `json:"query"`
	Parameters QueryParameters `json:"parameters"`
	Result     string          `json:"result"`   // 予測の生の結果文字列
	Response   string          `json:"response"` // LLMが整形した応答文
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"` // セッションIDで会話を紐付け
}

// ChatResponse represents the response from the chat API
type ChatResponse struct {
	Response        string   `json:"response"`
	SessionID       string   `json:"session_id,omitempty"`
	Timestamp       string   `json:"timestamp"`
	RelevantHistory []string `json:"relevant_history,omitempty"` // 関連する過去の会話
}

// PredictionFeatures は回帰モデルに渡す特徴量ベクトル（順序固定）
type PredictionFeatures struct {
	ItemID         int     `json:"item_id"`
	Day            int     `json:"day"`
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	DayNum         int     `json:"day_num"`
	IsWeekend      int     `json:"is_weekend"`
	FestivalEnc    float64 `json:"festival_enc"`
	Rolling3DayAvg float64 `json:"rolling_3day_avg"`
}

// Vector はモデルサーバーへ送る順序付き特徴量配列を返します。
// 順序は学習時の列順と一致している必要がある。
func (f PredictionFeatures) Vector() []float64 {
	return []float64{
		float64(f.ItemID),
		float64(f.Day),
		float64(f.Month),
		float64(f.Year),
		float64(f.DayNum),
		float64(f.IsWeekend),
		f.FestivalEnc,
		f.Rolling3DayAvg,
	}
}

// ChatHistoryEntry ベクトルストアに保存するチャット履歴の1エントリー
type ChatHistoryEntry struct {
	ID        string    `json:"id"`         // 一意のID
	SessionID string    `json:"session_id"` // セッションID（会話のグルーピング）
	Role      string    `json:"role"`       // "user" or "assistant"
	Message   string    `json:"message"`    // メッセージ内容
	ItemID    int       `json:"item_id,omitempty"`
	Date      string    `json:"date,omitempty"`
	Timestamp string    `json:"timestamp"`
	Relevance float64   `json:"relevance,omitempty"` // 検索時に設定
	CreatedAt time.Time `json:"created_at"`
}
