package source

import "strings"

// Layout 各字段在记录中的列下标，-1 表示不存在
type Layout struct {
	Title       int
	Year        int
	Rating      int
	Rewatch     int
	WatchedDate int
}

// RatingsLayout Letterboxd ratings.csv: Date,Name,Year,Letterboxd URI,Rating
var RatingsLayout = Layout{Title: 1, Year: 2, Rating: 4, Rewatch: -1, WatchedDate: -1}

// DiaryLayout Letterboxd diary.csv: Date,Name,Year,Letterboxd URI,Rating,Rewatch,Tags,Watched Date
var DiaryLayout = Layout{Title: 1, Year: 2, Rating: 4, Rewatch: 5, WatchedDate: 7}

var headerNames = map[string]func(*Layout, int){
	"name":         func(l *Layout, i int) { l.Title = i },
	"title":        func(l *Layout, i int) { l.Title = i },
	"year":         func(l *Layout, i int) { l.Year = i },
	"rating":       func(l *Layout, i int) { l.Rating = i },
	"rewatch":      func(l *Layout, i int) { l.Rewatch = i },
	"watched date": func(l *Layout, i int) { l.WatchedDate = i },
}

// ResolveLayout 按表头名称覆盖默认列位置，表头缺失的字段保持默认
func ResolveLayout(header []string, fallback Layout) Layout {
	l := fallback
	for i, name := range header {
		if set, ok := headerNames[strings.ToLower(strings.TrimSpace(name))]; ok {
			set(&l, i)
		}
	}
	return l
}

// minFields 记录至少需要的字段数
func (l Layout) minFields(cols ...int) int {
	n := 0
	for _, c := range cols {
		if c+1 > n {
			n = c + 1
		}
	}
	return n
}

// RatingFields ratings 行至少需要的字段数（标题 + 评分）
func (l Layout) RatingFields() int {
	return l.minFields(l.Title, l.Rating)
}

// DiaryFields diary 行至少需要的字段数（标题 + 观看日期）
func (l Layout) DiaryFields() int {
	return l.minFields(l.Title, l.WatchedDate)
}
