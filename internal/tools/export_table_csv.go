package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ExportTableCSVArgs is the export_table_csv tool's argument shape.
type ExportTableCSVArgs struct {
	TableName string `json:"tableName"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Where     string `json:"where,omitempty"`
}

// ExportTableCSVResult is the export_table_csv tool's response payload.
type ExportTableCSVResult struct {
	Table       string `json:"table"`
	CSVData     string `json:"csv_data"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	Format      string `json:"format"`
}

// ExportTableCSV produces a CSV body (with header row) of tableName's data
// (spec.md §4.5). Escaping: a value containing `,`, `"`, or newline is
// surrounded with `"…"` with embedded `"` doubled. NULL/absent values become
// empty fields.
func ExportTableCSV(ctx context.Context, deps *Deps, args ExportTableCSVArgs) (*ExportTableCSVResult, error) {
	data, err := GetTableData(ctx, deps, GetTableDataArgs{
		TableName: args.TableName, Database: args.Database, Schema: args.Schema, Limit: args.Limit, Where: args.Where,
	})
	if err != nil {
		return nil, err
	}

	if len(data.Rows) == 0 {
		return &ExportTableCSVResult{Table: args.TableName, CSVData: "", RowCount: 0, ColumnCount: 0, Format: "csv"}, nil
	}

	columns := orderedColumns(data.Rows)

	var sb strings.Builder

	writeCSVRow(&sb, columns)

	for _, row := range data.Rows {
		fields := make([]string, len(columns))

		for i, col := range columns {
			fields[i] = csvFieldValue(row[col])
		}

		writeCSVRow(&sb, fields)
	}

	return &ExportTableCSVResult{
		Table:       args.TableName,
		CSVData:     sb.String(),
		RowCount:    len(data.Rows),
		ColumnCount: len(columns),
		Format:      "csv",
	}, nil
}

// orderedColumns returns the first row's column names sorted by name. Rows
// arrive from GetTableData as maps, so the driver's column order is not
// available here; sorting keeps the CSV header deterministic across calls.
func orderedColumns(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}

	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j-1] > cols[j]; j-- {
			cols[j-1], cols[j] = cols[j], cols[j-1]
		}
	}

	return cols
}

func csvFieldValue(v any) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func writeCSVRow(sb *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(escapeCSVField(f))
	}

	sb.WriteByte('\n')
}

func escapeCSVField(field string) string {
	if strings.ContainsAny(field, ",\"\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}

	return field
}
