package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errEmptyRating = errors.New("rating is empty")
	errRatingRange = errors.New("rating out of range 0.5-5.0")
)

const (
	minRating = 0.5
	maxRating = 5.0
)

// rewatchTokens 日记中视为"重看"的取值（不区分大小写）
var rewatchTokens = map[string]struct{}{
	"yes":  {},
	"y":    {},
	"true": {},
	"1":    {},
}

// ParseRating 解析个人评分，空值、非数字、NaN/Inf 以及 0.5-5.0 之外的值都视为无效
func ParseRating(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyRating
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	if v < minRating || v > maxRating {
		return 0, errRatingRange
	}
	return v, nil
}

// ParseRewatch 解析重看标记，未识别的取值一律为 false
func ParseRewatch(s string) bool {
	_, ok := rewatchTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseYearPrefix 取日期字符串前 4 位解析为年份，失败返回 nil
func ParseYearPrefix(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}

// ParseOptionalInt 解析可选整数，空值或非法值返回 nil
func ParseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
