package drv

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	rangePattern  = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[-–]\s*(\d+(?:\.\d+)?)$`)
)

// MatchesAge 判斷年齡是否落在參考值的年齡區間描述內。
// 來源資料的區間是自由文字（"≥ 18 years"、"19-30 years"、"7-11 months"），
// 依序套用規則，第一個能解析的生效；完全解析不了回傳 false（寧可漏配不誤配）。
// 月齡區間只對出生未滿一歲（age 0）成立，不再細分月份。
func MatchesAge(expr string, ageYears int) bool {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return false
	}

	// 月齡描述一律視為未滿一歲
	if strings.Contains(expr, "month") {
		return ageYears == 0
	}

	// 去掉單位字樣，留下數字部分
	expr = strings.ReplaceAll(expr, "years", "")
	expr = strings.ReplaceAll(expr, "year", "")
	expr = strings.TrimSpace(expr)

	age := float64(ageYears)

	for _, prefix := range []string{"≥", ">="} {
		if rest, ok := strings.CutPrefix(expr, prefix); ok {
			if bound, ok := firstNumber(rest); ok {
				return age >= bound
			}
			return false
		}
	}
	for _, prefix := range []string{"≤", "<="} {
		if rest, ok := strings.CutPrefix(expr, prefix); ok {
			if bound, ok := firstNumber(rest); ok {
				return age <= bound
			}
			return false
		}
	}
	if rest, ok := strings.CutPrefix(expr, "<"); ok {
		if bound, ok := firstNumber(rest); ok {
			return age < bound
		}
		return false
	}
	if rest, ok := strings.CutPrefix(expr, ">"); ok {
		if bound, ok := firstNumber(rest); ok {
			return age > bound
		}
		return false
	}

	// "19-30" 之類的閉區間
	if m := rangePattern.FindStringSubmatch(expr); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return false
		}
		return age >= low && age <= high
	}

	// 單一數字視為精確年齡
	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return age == v
	}

	return false
}

func firstNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
