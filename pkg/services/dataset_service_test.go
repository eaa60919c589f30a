package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// テスト用の小さなデータセット。
// 2024年5月の合計: item1=15, item2=15（同数）, item3=42
const testCSV = `ORDERDATE,ITEMID_Mapped,TOTAL_ITEMSOLD,DAY,MONTH,YEAR,DAY_NUM,IS_WEEKEND,FESTIVAL_ENC,ROLLING_3DAY_AVG
2024-05-01,3,42,1,5,2024,122,0,0.0,40.5
2024-05-01,1,10,1,5,2024,122,0,0.0,9.0
2024-05-02,1,5,2,5,2024,123,0,0.0,8.0
2024-05-02,2,15,2,5,2024,123,0,0.0,12.0
2024-05-03,2,0,3,5,2024,124,0,0.0,5.0
2024-04-10,1,7,10,4,2024,101,0,0.0,6.5
2023-05-10,5,99,10,5,2023,130,0,1.0,80.0
`

// writeTempCSV は一時ディレクトリにデータセットファイルを書き出します。
func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestDataset は標準のテストデータセットを読み込みます。
func newTestDataset(t *testing.T) *DatasetService {
	t.Helper()
	ds := NewDatasetService(writeTempCSV(t, testCSV))
	require.True(t, ds.Loaded(), "テストデータセットの読み込みに失敗")
	return ds
}

func TestDatasetServiceLoad(t *testing.T) {
	ds := newTestDataset(t)

	ctx := ds.Context()
	assert.True(t, ctx.DataLoaded)
	assert.Equal(t, []int{1, 2, 3, 5}, ctx.AvailableItems) // 昇順ソート
	assert.Equal(t, "2023-05-10", ctx.MinDate)
	assert.Equal(t, "2024-05-03", ctx.MaxDate)
	assert.Len(t, ds.Records(), 7)
}

func TestDatasetServiceFindRecord(t *testing.T) {
	ds := newTestDataset(t)

	rec, found := ds.FindRecord(3, "2024-05-01")
	assert.True(t, found)
	assert.Equal(t, 42, rec.TotalSold)
	assert.Equal(t, 122, rec.DayNum)
	assert.Equal(t, 40.5, rec.Rolling3DayAvg)

	// 存在しない組み合わせ
	_, found = ds.FindRecord(3, "2024-05-02")
	assert.False(t, found)
	_, found = ds.FindRecord(99, "2024-05-01")
	assert.False(t, found)
}

func TestDatasetServiceMissingFileFallsBack(t *testing.T) {
	// 読み込み失敗は劣化モード: 空のアイテム集合とデフォルト日付範囲
	ds := NewDatasetService("/no/such/file.csv")

	assert.False(t, ds.Loaded())
	ctx := ds.Context()
	assert.Empty(t, ctx.AvailableItems)
	assert.Equal(t, "2020-01-01", ctx.MinDate)
	assert.Equal(t, "2024-12-31", ctx.MaxDate)
}

func TestDatasetServiceHeaderOnlyFallsBack(t *testing.T) {
	path := writeTempCSV(t, "ORDERDATE,ITEMID_Mapped,TOTAL_ITEMSOLD\n")
	ds := NewDatasetService(path)

	assert.False(t, ds.Loaded())
}

func TestDatasetServiceSkipsBadRows(t *testing.T) {
	csv := `ORDERDATE,ITEMID_Mapped,TOTAL_ITEMSOLD
2024-05-01,1,10
not-a-date,2,5
2024-05-02,,7
2024-05-03,3,twelve
2024-05-04,4,8
`
	ds := NewDatasetService(writeTempCSV(t, csv))

	assert.True(t, ds.Loaded())
	assert.Len(t, ds.Records(), 2)
	assert.Equal(t, []int{1, 4}, ds.Context().AvailableItems)
}

func TestDatasetServiceDateWithTimeComponent(t *testing.T) {
	// "2024-05-01 00:00:00" のような時刻付き日付も受け付ける
	csv := `ORDERDATE,ITEMID_Mapped,TOTAL_ITEMSOLD
2024-05-01 00:00:00,1,10
`
	ds := NewDatasetService(writeTempCSV(t, csv))

	assert.True(t, ds.Loaded())
	_, found := ds.FindRecord(1, "2024-05-01")
	assert.True(t, found)
}

func TestDatasetServiceDerivesFeatureColumns(t *testing.T) {
	// 特徴量列が省略されたファイルでは日付から導出する
	csv := `ORDERDATE,ITEMID_Mapped,TOTAL_ITEMSOLD
2024-05-04,1,10
`
	ds := NewDatasetService(writeTempCSV(t, csv))

	rec, found := ds.FindRecord(1, "2024-05-04")
	if !found {
		t.Fatal("レコードが見つかりません")
	}
	assert.Equal(t, 4, rec.Day)
	assert.Equal(t, 5, rec.Month)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, 125, rec.DayNum)    // 2024年はうるう年
	assert.Equal(t, 1, rec.IsWeekend)   // 2024-05-04は土曜日
}
