package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sales-chat-api/pkg/models"
)

// SalesPredictor は学習済み回帰モデルを提供する外部コラボレーターの契約。
// 特徴量ベクトルを渡すと数値予測を1つ返す。丸めは呼び出し側で行う。
type SalesPredictor interface {
	Predict(ctx context.Context, features models.PredictionFeatures) (float64, error)
}

// PredictorService はモデルサーバーへのHTTPクライアント。
// 学習・直列化はこのリポジトリの範囲外で、サーバー側に委ねる。
type PredictorService struct {
	baseURL    string
	httpClient *http.Client
}

// NewPredictorService は新しい予測クライアントを作成します。
func NewPredictorService(baseURL string) *PredictorService {
	return &PredictorService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// predictRequest モデルサーバーへのリクエスト
type predictRequest struct {
	Features []float64 `json:"features"`
}

// predictResponse モデルサーバーからのレスポンス
type predictResponse struct {
	Prediction float64 `json:"prediction"`
	Error      string  `json:"error,omitempty"`
}

// Predict は特徴量ベクトルをモデルサーバーに送り、予測値を受け取ります。
func (ps *PredictorService) Predict(ctx context.Context, features models.PredictionFeatures) (float64, error) {
	requestBody, err := json.Marshal(predictRequest{Features: features.Vector()})
	if err != nil {
		return 0, fmt.Errorf("リクエストのJSON化に失敗: %w", err)
	}

	url := ps.baseURL + "/predict"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return 0, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ps.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("モデルサーバーへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("モデルサーバーエラー (status: %d): %s", resp.StatusCode, string(body))
	}

	var predictResp predictResponse
	if err := json.Unmarshal(body, &predictResp); err != nil {
		return 0, fmt.Errorf("レスポンスのJSON解析に失敗: %w", err)
	}
	if predictResp.Error != "" {
		return 0, fmt.Errorf("モデルサーバーが失敗を返しました: %s", predictResp.Error)
	}

	return predictResp.Prediction, nil
}
