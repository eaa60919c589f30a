package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 月名（フルネームと3文字略記）→ 月番号
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	yearPattern  = regexp.MustCompile(`\b(\d{4})\b`)
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// NormalizeDate は自由記述の日付表現を正規形（YYYY-MM-DD）の列に変換します。
// ルールは優先順に適用され、最初に一致したものだけが使われる：
//  1. "whole may" / "entire may" / "all of may" → その月の全日
//  2. 月名単独（"may", "may 2024"）→ 同じく全日展開
//  3. "4-5-2024" → 日-月-年として解釈（米国式の月-日-年ではない）
//  4. 厳密なYYYY-MM-DD → 検証して通過
//  5. どれにも一致しない → 空
//
// 月の展開日数は実際の暦に従う（うるう年の2月は29日）。
// 年が明示されていない月名はnowの年とみなす。
func NormalizeDate(text string, now time.Time) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	// ルール1・2: 月名を含む表現はどちらも全日展開になる。
	// "whole"等の語はヒントにすぎず、展開結果は変わらない。
	if month, ok := findMonthName(text); ok {
		year := now.Year()
		if m := yearPattern.FindString(text); m != "" {
			year, _ = strconv.Atoi(m)
		}
		return expandMonth(year, month)
	}

	// ルール3: D-M-YYYY（日-月-年）
	if m := dayFirstDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		canonical := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if _, err := time.Parse("2006-01-02", canonical); err != nil {
			return nil
		}
		return []string{canonical}
	}

	// ルール4: 厳密なYYYY-MM-DD
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return []string{t.Format("2006-01-02")}
	}

	return nil
}

// findMonthName はテキスト中の最初の月名を探します。
// "2024-05-04" のような数値表現を月名として誤検出しないよう、
// 単語境界つきで照合する。
func findMonthName(text string) (time.Month, bool) {
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.'
	}) {
		if m, ok := monthNames[word]; ok {
			return m, true
		}
	}
	return 0, false
}

// expandMonth は指定月の全日をYYYY-MM-DD形式で返します。
func expandMonth(year int, month time.Month) []string {
	days := daysInMonth(year, month)
	dates := make([]string, 0, days)
	for day := 1; day <= days; day++ {
		dates = append(dates, fmt.Sprintf("%04d-%02d-%02d", year, int(month), day))
	}
	return dates
}

// daysInMonth はその年・月の実日数を返します（28/29/30/31）。
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ExpandMonthDates はDispatcher向けの公開ヘルパー。月番号(1-12)で展開する。
func ExpandMonthDates(year, month int) []string {
	if month < 1 || month > 12 {
		return nil
	}
	return expandMonth(year, time.Month(month))
}

// IsCanonicalDate は文字列が正規形YYYY-MM-DDの実在する日付かを返します。
func IsCanonicalDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
