package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp 在 JSON 中编码为毫秒时间戳字符串，例如 "1704067200000"
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp 解析毫秒时间戳，同时兼容 RFC 3339 格式
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, fmt.Errorf("时间戳为空")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(ms)}, nil
	}

	// 表格导入时数字单元格可能带有小数部分
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(int64(f))}, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("无法解析时间戳 %q", s)
	}
	return Timestamp{Time: t}, nil
}

func (t Timestamp) Millis() int64 {
	return t.Time.UnixMilli()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(t.Millis(), 10))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
