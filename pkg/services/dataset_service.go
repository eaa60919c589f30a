package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"sales-chat-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// 劣化モード時のデフォルト日付範囲
const (
	fallbackMinDate = "2020-01-01"
	fallbackMaxDate = "2024-12-31"
)

// DatasetService は過去売上データセットを保持します。
// 起動時に一度だけ読み込み、以降は読み取り専用。
type DatasetService struct {
	records []models.SalesRecord
	context models.DataContext
	byKey   map[string]int // "itemID|YYYY-MM-DD" -> recordsのインデックス
}

// NewDatasetService はCSVまたはxlsxのデータセットを読み込みます。
// 読み込みに失敗してもエラーは返さず、空のコンテキストで劣化モードに
// 移行します（以降のデータ依存クエリは「data not available」扱い）。
func NewDatasetService(path string) *DatasetService {
	ds := &DatasetService{
		byKey: make(map[string]int),
		context: models.DataContext{
			MinDate: fallbackMinDate,
			MaxDate: fallbackMaxDate,
		},
	}

	rows, err := readTabularFile(path)
	if err != nil {
		log.Printf("❌ データセットの読み込みに失敗しました: %v（劣化モードで継続します）", err)
		return ds
	}

	if err := ds.buildRecords(rows); err != nil {
		log.Printf("❌ データセットの解析に失敗しました: %v（劣化モードで継続します）", err)
		return ds
	}

	log.Printf("📊 データセットを読み込みました: %d行, アイテム%d種, 期間 %s 〜 %s",
		len(ds.records), len(ds.context.AvailableItems), ds.context.MinDate, ds.context.MaxDate)
	return ds
}

// readTabularFile は拡張子に応じてCSVまたはExcelの全行を取得します。
func readTabularFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return readExcelRows(f)
	}
	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVの解析に失敗: %w", err)
	}
	return rows, nil
}

func readExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("Excelシートの行取得に失敗: %w", err)
	}
	return rows, nil
}

// findColumn finds the index of the first candidate in a header row
func findColumn(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

// buildRecords はヘッダー行から列を検出し、全データ行をSalesRecordへ変換します。
func (ds *DatasetService) buildRecords(rows [][]string) error {
	if len(rows) < 2 {
		return fmt.Errorf("ヘッダー行と少なくとも1行のデータが必要です")
	}

	header := rows[0]
	dateCol := findColumn(header, "ORDERDATE", "order_date", "date")
	itemCol := findColumn(header, "ITEMID_Mapped", "item_id", "product_id")
	soldCol := findColumn(header, "TOTAL_ITEMSOLD", "total_sold", "sales")
	dayCol := findColumn(header, "DAY", "day")
	monthCol := findColumn(header, "MONTH", "month")
	yearCol := findColumn(header, "YEAR", "year")
	dayNumCol := findColumn(header, "DAY_NUM", "day_num")
	weekendCol := findColumn(header, "IS_WEEKEND", "is_weekend")
	festivalCol := findColumn(header, "FESTIVAL_ENC", "festival_enc")
	rollingCol := findColumn(header, "ROLLING_3DAY_AVG", "rolling_3day_avg")

	if dateCol == -1 || itemCol == -1 || soldCol == -1 {
		return fmt.Errorf("必要な列が見つかりません（日付・アイテム・販売数）。ヘッダー: %v", header)
	}

	itemSet := make(map[int]struct{})
	var minDate, maxDate time.Time
	parseErrors := 0

	for _, row := range rows[1:] {
		if len(row) <= dateCol || len(row) <= itemCol || len(row) <= soldCol {
			parseErrors++
			continue
		}

		orderDate, ok := parseOrderDate(row[dateCol])
		if !ok {
			parseErrors++
			continue
		}

		itemID, err1 := strconv.Atoi(strings.TrimSpace(row[itemCol]))
		sold, err2 := parseIntValue(row[soldCol])
		if err1 != nil || err2 != nil {
			parseErrors++
			continue
		}

		rec := models.SalesRecord{
			ItemID:    itemID,
			OrderDate: orderDate,
			TotalSold: sold,
			Day:       orderDate.Day(),
			Month:     int(orderDate.Month()),
			Year:      orderDate.Year(),
			DayNum:    orderDate.YearDay(),
		}
		// 特徴量列はあれば上書き、なければ日付から導出した値のまま
		if v, err := cellInt(row, dayCol); err == nil {
			rec.Day = v
		}
		if v, err := cellInt(row, monthCol); err == nil {
			rec.Month = v
		}
		if v, err := cellInt(row, yearCol); err == nil {
			rec.Year = v
		}
		if v, err := cellInt(row, dayNumCol); err == nil {
			rec.DayNum = v
		}
		if v, err := cellInt(row, weekendCol); err == nil {
			rec.IsWeekend = v
		} else if wd := orderDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			rec.IsWeekend = 1
		}
		if v, err := cellFloat(row, festivalCol); err == nil {
			rec.FestivalEnc = v
		}
		if v, err := cellFloat(row, rollingCol); err == nil {
			rec.Rolling3DayAvg = v
		}

		key := recordKey(itemID, orderDate.Format("2006-01-02"))
		if _, exists := ds.byKey[key]; !exists {
			ds.byKey[key] = len(ds.records)
		}
		ds.records = append(ds.records, rec)

		itemSet[itemID] = struct{}{}
		if minDate.IsZero() || orderDate.Before(minDate) {
			minDate = orderDate
		}
		if maxDate.IsZero() || orderDate.After(maxDate) {
			maxDate = orderDate
		}
	}

	if len(ds.records) == 0 {
		return fmt.Errorf("有効なデータ行がありません（解析失敗 %d行）", parseErrors)
	}
	if parseErrors > 0 {
		log.Printf("⚠️ %d行の解析に失敗しスキップしました", parseErrors)
	}

	items := make([]int, 0, len(itemSet))
	for id := range itemSet {
		items = append(items, id)
	}
	sort.Ints(items)

	ds.context = models.DataContext{
		AvailableItems: items,
		MinDate:        minDate.Format("2006-01-02"),
		MaxDate:        maxDate.Format("2006-01-02"),
		DataLoaded:     true,
	}
	return nil
}

// parseOrderDate はデータセット中の日付表現を解釈します。
// "2024-05-01 00:00:00" のような時刻付きも許容する。
func parseOrderDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range []string{"2006-01-02", "2006/1/2", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseIntValue は "42" も "42.0" も整数として受け付けます。
func parseIntValue(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func cellInt(row []string, col int) (int, error) {
	if col < 0 || col >= len(row) {
		return 0, fmt.Errorf("列がありません")
	}
	return parseIntValue(row[col])
}

func cellFloat(row []string, col int) (float64, error) {
	if col < 0 || col >= len(row) {
		return 0, fmt.Errorf("列がありません")
	}
	return strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
}

func recordKey(itemID int, date string) string {
	return strconv.Itoa(itemID) + "|" + date
}

// Loaded はデータセットが正常に読み込まれているかを返します。
func (ds *DatasetService) Loaded() bool {
	return ds.context.DataLoaded
}

// Context はデータセットの派生サマリーを値で返します。
func (ds *DatasetService) Context() models.DataContext {
	ctx := ds.context
	ctx.AvailableItems = append([]int(nil), ds.context.AvailableItems...)
	return ctx
}

// Records は全レコードを返します（呼び出し側は変更しないこと）。
func (ds *DatasetService) Records() []models.SalesRecord {
	return ds.records
}

// FindRecord はアイテムIDと正規化済み日付（YYYY-MM-DD）で行を検索します。
func (ds *DatasetService) FindRecord(itemID int, date string) (models.SalesRecord, bool) {
	idx, ok := ds.byKey[recordKey(itemID, date)]
	if !ok {
		return models.SalesRecord{}, false
	}
	return ds.records[idx], true
}
