package service

import (
	"fmt"

	"github.com/user/moovie-wrapped/internal/utils"
)

// Ranker 从搜索候选中选出最佳匹配，candidates 非空
type Ranker interface {
	Rank(candidates []Candidate, hints SearchHints) *Candidate
}

// RankerFunc 函数形式的 Ranker
type RankerFunc func(candidates []Candidate, hints SearchHints) *Candidate

func (f RankerFunc) Rank(candidates []Candidate, hints SearchHints) *Candidate {
	return f(candidates, hints)
}

// FirstResult 第一个结果即为权威结果
var FirstResult = RankerFunc(func(candidates []Candidate, _ SearchHints) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	c := candidates[0]
	return &c
})

// PreferYear 优先选择上映年份与提示一致的第一个候选，否则退回第一个结果
var PreferYear = RankerFunc(func(candidates []Candidate, hints SearchHints) *Candidate {
	if hints.Year != nil {
		for _, c := range candidates {
			if y := utils.ParseYearPrefix(c.ReleaseDate); y != nil && *y == *hints.Year {
				match := c
				return &match
			}
		}
	}
	return FirstResult(candidates, hints)
})

// RankerByName 根据配置名称选择 Ranker
func RankerByName(name string) (Ranker, error) {
	switch name {
	case "", "first":
		return FirstResult, nil
	case "year":
		return PreferYear, nil
	default:
		return nil, fmt.Errorf("unknown ranker %q", name)
	}
}
