package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func toFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt 只接受整数值，表格中的 "1.0" 这类数字也视为整数
func toInt(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}

	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// toBreakdown 解析按天拆分的工时数组，支持 JSON 数组以及逗号或分号分隔的字符串
// 无法解析的单项记为 0 以保持各天的位置不变，返回 nil 表示没有拆分
func toBreakdown(v any) []float64 {
	var items []any

	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		items = val
	case []float64:
		return append([]float64{}, val...)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			dec := json.NewDecoder(strings.NewReader(s))
			dec.UseNumber()
			if err := dec.Decode(&items); err != nil {
				return nil
			}
			break
		}
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
			items = append(items, part)
		}
	default:
		return nil
	}

	breakdown := make([]float64, 0, len(items))
	for _, item := range items {
		f, _ := toFloat(item)
		breakdown = append(breakdown, f)
	}
	return breakdown
}
