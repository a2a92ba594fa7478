package source

import (
	"strings"

	"github.com/user/moovie-wrapped/internal/utils"
)

// RatingRow ratings.csv 中可用的一行
type RatingRow struct {
	Title  string
	Rating float64
	Year   *int // 导出文件中的年份，仅作为检索提示
}

// DiaryRow diary.csv 中可用的一行
type DiaryRow struct {
	Title       string
	WatchedDate string
	Rewatch     bool
	Year        *int
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// ParseRatingRow 字段不足、标题为空或评分无法解析时返回 false
func ParseRatingRow(rec []string, l Layout) (RatingRow, bool) {
	if len(rec) < l.RatingFields() {
		return RatingRow{}, false
	}
	title := strings.TrimSpace(field(rec, l.Title))
	if title == "" {
		return RatingRow{}, false
	}
	rating, err := utils.ParseRating(field(rec, l.Rating))
	if err != nil {
		return RatingRow{}, false
	}
	return RatingRow{
		Title:  title,
		Rating: rating,
		Year:   utils.ParseOptionalInt(field(rec, l.Year)),
	}, true
}

// ParseDiaryRow 字段不足、标题或观看日期为空时返回 false
func ParseDiaryRow(rec []string, l Layout) (DiaryRow, bool) {
	if len(rec) < l.DiaryFields() {
		return DiaryRow{}, false
	}
	title := strings.TrimSpace(field(rec, l.Title))
	date := strings.TrimSpace(field(rec, l.WatchedDate))
	if title == "" || date == "" {
		return DiaryRow{}, false
	}
	return DiaryRow{
		Title:       title,
		WatchedDate: date,
		Rewatch:     utils.ParseRewatch(field(rec, l.Rewatch)),
		Year:        utils.ParseOptionalInt(field(rec, l.Year)),
	}, true
}
