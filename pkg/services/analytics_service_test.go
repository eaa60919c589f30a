package services

import (
	"context"
	"fmt"
	"testing"

	"sales-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

// stubPredictor は決定的な回帰コラボレーターのスタブ
type stubPredictor struct {
	prediction float64
	err        error
	lastVector []float64
}

func (sp *stubPredictor) Predict(_ context.Context, features models.PredictionFeatures) (float64, error) {
	sp.lastVector = features.Vector()
	if sp.err != nil {
		return 0, sp.err
	}
	return sp.prediction, nil
}

func intPtr(n int) *int { return &n }

func newTestAnalytics(t *testing.T, predictor SalesPredictor) *AnalyticsService {
	t.Helper()
	return NewAnalyticsService(newTestDataset(t), predictor)
}

func TestPredictSales(t *testing.T) {
	predictor := &stubPredictor{prediction: 37.6}
	as := newTestAnalytics(t, predictor)

	result, err := as.PredictSales(context.Background(), 3, "2024-05-01")

	assert.NoError(t, err)
	assert.Equal(t, "Actual: 42, Predicted: 38", result) // 四捨五入

	// 特徴量ベクトルは事前計算列を順序どおりに渡す
	assert.Equal(t, []float64{3, 1, 5, 2024, 122, 0, 0.0, 40.5}, predictor.lastVector)
}

func TestPredictSalesNoHistoricalData(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{prediction: 10})

	// 該当行なしはエラーではなく通常の空結果
	result, err := as.PredictSales(context.Background(), 3, "2024-05-02")

	assert.NoError(t, err)
	assert.Equal(t, "No historical data found for item 3 on 2024-05-02.", result)
}

func TestPredictSalesPredictorFailure(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{err: fmt.Errorf("connection refused")})

	_, err := as.PredictSales(context.Background(), 3, "2024-05-01")

	assert.Error(t, err)
}

func TestPredictSalesDataNotLoaded(t *testing.T) {
	ds := NewDatasetService("/no/such/file.csv")
	as := NewAnalyticsService(ds, &stubPredictor{})

	result, err := as.PredictSales(context.Background(), 3, "2024-05-01")

	assert.NoError(t, err)
	assert.Equal(t, "Data not available for analysis.", result)
}

func TestGetSalesSummaryByItem(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// item1の全行: 10 + 5 + 7 = 22
	result := as.GetSalesSummary(intPtr(1), nil)

	assert.Contains(t, result, "Item ID: 1")
	assert.Contains(t, result, "Total Sales: 22 units")
	assert.Contains(t, result, "Average Daily Sales: 7.3 units")
	assert.Contains(t, result, "Maximum Daily Sales: 10 units")
	assert.Contains(t, result, "Minimum Daily Sales: 5 units")
}

func TestGetSalesSummaryByItemAndDates(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	result := as.GetSalesSummary(intPtr(1), []string{"2024-05-01", "2024-05-02"})

	assert.Contains(t, result, "Dates: 2024-05-01, 2024-05-02")
	assert.Contains(t, result, "Total Sales: 15 units")
}

func TestGetSalesSummaryLongDateRangeShowsCount(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	dates := ExpandMonthDates(2024, 5)
	result := as.GetSalesSummary(intPtr(1), dates)

	// 6日以上の範囲は日付を列挙せず日数で示す
	assert.Contains(t, result, "Date Range: 31 days")
}

func TestGetSalesSummaryEmptyFilter(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// 計算値ゼロとは区別された「データなし」結果。NaNやゼロ除算にならない。
	result := as.GetSalesSummary(intPtr(99), nil)

	assert.Equal(t, "No data found for the specified criteria.", result)
}

func TestGetSalesSummaryZeroSalesIsNotNoData(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// item2の2024-05-03は販売数0の行が存在する
	result := as.GetSalesSummary(intPtr(2), []string{"2024-05-03"})

	assert.NotContains(t, result, "No data found")
	assert.Contains(t, result, "Total Sales: 0 units")
	assert.Contains(t, result, "Average Daily Sales: 0.0 units")
}

func TestFindMostSoldItem(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	result := as.FindMostSoldItem(intPtr(5), intPtr(2024))

	assert.Contains(t, result, "Most Sold Item in May 2024")
	assert.Contains(t, result, "Item ID 3")
	assert.Contains(t, result, "42 total units sold")
	assert.Contains(t, result, "1. Item 3: 42 units")
}

func TestFindMostSoldItemTieBreaksByAscendingID(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// 2024年5月はitem1とitem2がともに15個で同数。ID昇順でitem1が先。
	ranked := as.rankItemsBySales(intPtr(5), intPtr(2024))

	assert.Equal(t, []itemTotal{
		{ItemID: 3, TotalSold: 42},
		{ItemID: 1, TotalSold: 15},
		{ItemID: 2, TotalSold: 15},
	}, ranked)
}

func TestFindMostSoldItemDeterministic(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// 同じ入力に対して常に同じ順序
	first := as.FindMostSoldItem(intPtr(5), intPtr(2024))
	second := as.FindMostSoldItem(intPtr(5), intPtr(2024))

	assert.Equal(t, first, second)
}

func TestFindMostSoldItemNoData(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	result := as.FindMostSoldItem(intPtr(1), intPtr(2024)) // 1月のデータはない

	assert.Equal(t, "No data found for the specified period.", result)
}

func TestFindMostSoldItemUnfiltered(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// フィルタなしでは2023年のitem5(99個)が最多
	result := as.FindMostSoldItem(nil, nil)

	assert.Contains(t, result, "Most Sold Item in the specified period")
	assert.Contains(t, result, "Item ID 5")
}

func TestAnalyzePeriod(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	result := as.AnalyzePeriod(intPtr(1), intPtr(5), intPtr(2024))

	assert.Contains(t, result, "Total Sales: 15 units")
}

func TestAnalyzePeriodWithoutMonth(t *testing.T) {
	as := newTestAnalytics(t, &stubPredictor{})

	// 期間が解決できないときは全件集計に落とさない
	result := as.AnalyzePeriod(intPtr(1), nil, intPtr(2024))

	assert.Equal(t, "Please specify a time period for analysis.", result)
}
