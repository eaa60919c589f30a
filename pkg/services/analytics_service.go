package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"sales-chat-api/pkg/models"
)

// 結果メッセージ（ユーザー向け、英語はデータセットの言語に合わせる）
const (
	msgDataNotAvailable  = "Data not available for analysis."
	msgNoDataForPeriod   = "No data found for the specified period."
	msgNoDataForCriteria = "No data found for the specified criteria."
	msgSpecifyPeriod     = "Please specify a time period for analysis."
)

// AnalyticsService は売上データセットに対する4つの決定的な分析操作を提供します。
// いずれも共有状態を変更しない純関数。
type AnalyticsService struct {
	data      *DatasetService
	predictor SalesPredictor
}

// NewAnalyticsService は新しい分析サービスを作成します。
func NewAnalyticsService(data *DatasetService, predictor SalesPredictor) *AnalyticsService {
	return &AnalyticsService{
		data:      data,
		predictor: predictor,
	}
}

// PredictSales は検証済みのアイテムID・正規化済み日付に対する点予測を行います。
// 該当行が無い場合はエラーではなく通常の空結果として報告する。
func (as *AnalyticsService) PredictSales(ctx context.Context, itemID int, date string) (string, error) {
	if !as.data.Loaded() {
		return msgDataNotAvailable, nil
	}

	record, found := as.data.FindRecord(itemID, date)
	if !found {
		return fmt.Sprintf("No historical data found for item %d on %s.", itemID, date), nil
	}

	features := models.PredictionFeatures{
		ItemID:         record.ItemID,
		Day:            record.Day,
		Month:          record.Month,
		Year:           record.Year,
		DayNum:         record.DayNum,
		IsWeekend:      record.IsWeekend,
		FestivalEnc:    record.FestivalEnc,
		Rolling3DayAvg: record.Rolling3DayAvg,
	}

	predicted, err := as.predictor.Predict(ctx, features)
	if err != nil {
		return "", fmt.Errorf("予測モデルの呼び出しに失敗: %w", err)
	}

	return fmt.Sprintf("Actual: %d, Predicted: %d", record.TotalSold, int(math.Round(predicted))), nil
}

// GetSalesSummary はアイテム・日付集合で絞り込んだ売上の統計を返します。
// 絞り込み結果が空のときは計算値ゼロとは区別されたメッセージを返す。
func (as *AnalyticsService) GetSalesSummary(itemID *int, dates []string) string {
	if !as.data.Loaded() {
		return msgDataNotAvailable
	}

	dateSet := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		dateSet[d] = struct{}{}
	}

	var total, maxSold, minSold, count int
	first := true
	for _, rec := range as.data.Records() {
		if itemID != nil && rec.ItemID != *itemID {
			continue
		}
		if len(dateSet) > 0 {
			if _, ok := dateSet[rec.OrderDate.Format("2006-01-02")]; !ok {
				continue
			}
		}
		total += rec.TotalSold
		if first || rec.TotalSold > maxSold {
			maxSold = rec.TotalSold
		}
		if first || rec.TotalSold < minSold {
			minSold = rec.TotalSold
		}
		first = false
		count++
	}

	if count == 0 {
		return msgNoDataForCriteria
	}

	avg := float64(total) / float64(count)

	var b strings.Builder
	b.WriteString("**Sales Summary:**\n")
	if itemID != nil {
		b.WriteString(fmt.Sprintf("Item ID: %d\n", *itemID))
	}
	if len(dates) > 0 && len(dates) <= 5 {
		b.WriteString(fmt.Sprintf("Dates: %s\n", strings.Join(dates, ", ")))
	} else if len(dates) > 5 {
		b.WriteString(fmt.Sprintf("Date Range: %d days\n", len(dates)))
	}
	b.WriteString("\n📊 **Statistics:**\n")
	b.WriteString(fmt.Sprintf("• Total Sales: %d units\n", total))
	b.WriteString(fmt.Sprintf("• Average Daily Sales: %.1f units\n", avg))
	b.WriteString(fmt.Sprintf("• Maximum Daily Sales: %d units\n", maxSold))
	b.WriteString(fmt.Sprintf("• Minimum Daily Sales: %d units\n", minSold))

	return b.String()
}

// itemTotal 集計途中のアイテム別合計
type itemTotal struct {
	ItemID    int
	TotalSold int
}

// rankItemsBySales は月・年の絞り込み後、アイテム別の合計販売数を
// 降順に並べます。同数のときはアイテムID昇順（合計降順・ID昇順の全順序）。
func (as *AnalyticsService) rankItemsBySales(month, year *int) []itemTotal {
	totals := make(map[int]int)
	for _, rec := range as.data.Records() {
		if month != nil && rec.Month != *month {
			continue
		}
		if year != nil && rec.Year != *year {
			continue
		}
		totals[rec.ItemID] += rec.TotalSold
	}

	ranked := make([]itemTotal, 0, len(totals))
	for id, sum := range totals {
		ranked = append(ranked, itemTotal{ItemID: id, TotalSold: sum})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalSold != ranked[j].TotalSold {
			return ranked[i].TotalSold > ranked[j].TotalSold
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})
	return ranked
}

// FindMostSoldItem は期間内で最も売れたアイテムとトップ5を返します。
func (as *AnalyticsService) FindMostSoldItem(month, year *int) string {
	if !as.data.Loaded() {
		return msgDataNotAvailable
	}

	ranked := as.rankItemsBySales(month, year)
	if len(ranked) == 0 {
		return msgNoDataForPeriod
	}

	periodDesc := "the specified period"
	if month != nil && year != nil {
		periodDesc = fmt.Sprintf("%s %d", monthName(*month), *year)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**Most Sold Item in %s:**\n", periodDesc))
	b.WriteString(fmt.Sprintf("🏆 **Item ID %d** with **%d total units sold**\n\n", ranked[0].ItemID, ranked[0].TotalSold))
	b.WriteString("**Top 5 Items:**\n")
	for i, entry := range ranked {
		if i >= 5 {
			break
		}
		b.WriteString(fmt.Sprintf("%d. Item %d: %d units\n", i+1, entry.ItemID, entry.TotalSold))
	}

	return b.String()
}

// AnalyzePeriod は月＋年をその月の全日へ展開してサマリーへ委譲します。
// 解決できる期間が無いときは、全件集計に落とさずに期間の指定を求める。
func (as *AnalyticsService) AnalyzePeriod(itemID *int, month, year *int) string {
	if !as.data.Loaded() {
		return msgDataNotAvailable
	}
	if month == nil || year == nil {
		return msgSpecifyPeriod
	}
	dates := ExpandMonthDates(*year, *month)
	if len(dates) == 0 {
		return msgSpecifyPeriod
	}
	return as.GetSalesSummary(itemID, dates)
}

// monthName は月番号(1-12)の英語名を返します。
func monthName(month int) string {
	names := []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	if month < 1 || month > 12 {
		return "Unknown"
	}
	return names[month-1]
}
