// Package source 读取 Letterboxd 导出的 ratings.csv / diary.csv
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table 一个 CSV 文件：表头 + 数据行（数据行字段数可能不一致）
type Table struct {
	Header  []string
	Records [][]string
}

// ReadFile 打开并读取 CSV 文件
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 失败: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read 读取 CSV，第一行视为表头
// 单行解析错误（如引号不匹配）会被保留为空记录，交由调用方按畸形行跳过
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	t := &Table{}
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if first {
				return nil, fmt.Errorf("解析表头失败: %w", err)
			}
			t.Records = append(t.Records, nil)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 失败: %w", err)
		}

		if first {
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			}
			t.Header = rec
			first = false
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}
