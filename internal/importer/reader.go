package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("不支持的文件格式")

// FormatFromFilename 根据文件扩展名判断导入格式
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadRows 读取表格文件，第一行作为列名，空单元格的值为 nil
func ReadRows(r io.Reader, format Format) ([]Row, error) {
	switch format {
	case FormatXLSX:
		return readWorkbook(r)
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readWorkbook(r io.Reader) ([]Row, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("工作簿中没有工作表")
	}

	records, err := file.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records), nil
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records), nil
}

func readJSON(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	// 兼容 {"data": [...]} 形式的包装
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Data []Row `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.Data, nil
	}

	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func rowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return []Row{}
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)

	for _, record := range records[1:] {
		// 行尾的空单元格去掉，行中间的空单元格保留为 nil 占位，产能行按位置取值
		last := len(record) - 1
		for last >= 0 && strings.TrimSpace(record[last]) == "" {
			last--
		}
		if last < 0 {
			continue
		}

		row := make(Row, 0, last+1)
		for i, value := range record[:last+1] {
			name := ""
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			cell := Cell{Name: name}
			if strings.TrimSpace(value) != "" {
				cell.Value = value
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	return rows
}
