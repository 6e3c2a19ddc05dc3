package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Cell 为表格导入的一个字段，Name 为空表示该字段只有位置没有列名
type Cell struct {
	Name  string
	Value any
}

// Row 为外部表格导入得到的一行原始数据，保留字段的原始顺序
type Row []Cell

func NewRow(values ...any) Row {
	row := make(Row, 0, len(values))
	for _, v := range values {
		row = append(row, Cell{Value: v})
	}
	return row
}

// Values 按位置返回所有字段的值
func (r Row) Values() []any {
	values := make([]any, 0, len(r))
	for _, c := range r {
		values = append(values, c.Value)
	}
	return values
}

// Get 按列名查找字段，列名比较时忽略大小写、空格、下划线和连字符
// 值为 nil 的字段（空单元格、JSON null）视为不存在
func (r Row) Get(names ...string) (any, bool) {
	for _, name := range names {
		key := normalizeHeader(name)
		for _, c := range r {
			if c.Value != nil && normalizeHeader(c.Name) == key {
				return c.Value, true
			}
		}
	}
	return nil, false
}

// UnmarshalJSON 同时支持数组形式和对象形式的行，对象形式会保留键的顺序
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("行数据必须是数组或对象")
	}

	row := Row{}
	switch delim {
	case '[':
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			row = append(row, Cell{Value: v})
		}
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := keyTok.(string)
			if !ok {
				return errors.New("对象的键必须是字符串")
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			row = append(row, Cell{Name: key, Value: v})
		}
	default:
		return fmt.Errorf("行数据必须是数组或对象")
	}

	*r = row
	return nil
}

func normalizeHeader(header string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(header)))
}
