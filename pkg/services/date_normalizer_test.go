package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// テストの基準日（2024年処理中を想定）
var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestNormalizeDateCanonicalPassthrough(t *testing.T) {
	dates := NormalizeDate("2024-05-04", testNow)

	assert.Equal(t, []string{"2024-05-04"}, dates)
}

func TestNormalizeDateDayFirst(t *testing.T) {
	// "4-5-2024" は日-月-年（5月4日）。米国式の月-日-年ではない。
	dates := NormalizeDate("4-5-2024", testNow)

	assert.Equal(t, []string{"2024-05-04"}, dates)
}

func TestNormalizeDateEquivalentPhrasings(t *testing.T) {
	// 同じ日付を指す表現は同一の正規形に揃う
	a := NormalizeDate("4-5-2024", testNow)
	b := NormalizeDate("2024-05-04", testNow)

	assert.Equal(t, a, b)
}

func TestNormalizeDateDayFirstZeroPadding(t *testing.T) {
	dates := NormalizeDate("09-1-2023", testNow)

	assert.Equal(t, []string{"2023-01-09"}, dates)
}

func TestNormalizeDateWholeMonth(t *testing.T) {
	dates := NormalizeDate("whole may", testNow)

	assert.Len(t, dates, 31)
	assert.Equal(t, "2024-05-01", dates[0])
	assert.Equal(t, "2024-05-31", dates[30])
}

func TestNormalizeDateBareMonthWithYear(t *testing.T) {
	dates := NormalizeDate("may 2023", testNow)

	assert.Len(t, dates, 31)
	assert.Equal(t, "2023-05-01", dates[0])
}

func TestNormalizeDateMonthDefaultsToCurrentYear(t *testing.T) {
	// 年の明示がない月名は処理時点の年とみなす
	dates := NormalizeDate("entire november", testNow)

	assert.Len(t, dates, 30)
	assert.Equal(t, "2024-11-01", dates[0])
}

func TestNormalizeDateFebruaryLeapYear(t *testing.T) {
	// うるう年の2月は29日、平年は28日
	leap := NormalizeDate("february 2024", testNow)
	common := NormalizeDate("february 2023", testNow)

	assert.Len(t, leap, 29)
	assert.Len(t, common, 28)
	assert.Equal(t, "2024-02-29", leap[28])
}

func TestNormalizeDateNoMatch(t *testing.T) {
	assert.Empty(t, NormalizeDate("sometime soon", testNow))
	assert.Empty(t, NormalizeDate("", testNow))
	assert.Empty(t, NormalizeDate("13-13-2024", testNow)) // 13月は存在しない
}

func TestNormalizeDateInvalidCalendarDate(t *testing.T) {
	// 2月30日は実在しない
	assert.Empty(t, NormalizeDate("30-2-2024", testNow))
}

func TestExpandMonthDates(t *testing.T) {
	dates := ExpandMonthDates(2024, 2)
	assert.Len(t, dates, 29)

	dates = ExpandMonthDates(2024, 4)
	assert.Len(t, dates, 30)

	// 範囲外の月番号は展開しない
	assert.Empty(t, ExpandMonthDates(2024, 0))
	assert.Empty(t, ExpandMonthDates(2024, 13))
}

func TestIsCanonicalDate(t *testing.T) {
	assert.True(t, IsCanonicalDate("2024-05-01"))
	assert.False(t, IsCanonicalDate("4-5-2024"))
	assert.False(t, IsCanonicalDate("2024-02-30"))
	assert.False(t, IsCanonicalDate("may 2024"))
}
