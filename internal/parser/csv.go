package parser

import (
	"strings"
)

// readRecords splits comma separated content into records. A double quote
// opens a quoted section in which commas and line breaks are literal and ""
// stands for a single quote character. Blank lines are skipped.
func readRecords(content string) [][]string {
	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
		touched  bool
	)
	endRecord := func() {
		record = append(record, field.String())
		field.Reset()
		if touched || len(record) > 1 || record[0] != "" {
			records = append(records, record)
		}
		record = nil
		touched = false
	}
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if inQuotes {
			if ch != '"' {
				field.WriteByte(ch)
				continue
			}
			if i+1 < len(content) && content[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = false
			continue
		}
		switch ch {
		case '"':
			inQuotes = true
			touched = true
		case ',':
			record = append(record, field.String())
			field.Reset()
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			endRecord()
		case '\n':
			endRecord()
		default:
			field.WriteByte(ch)
		}
	}
	if field.Len() > 0 || len(record) > 0 || touched {
		endRecord()
	}
	return records
}

// table is a parsed tabular export with a lower-cased header index.
type table struct {
	columns map[string]int
	rows    [][]string
}

func newTable(content []byte) (*table, bool) {
	records := readRecords(string(content))
	if len(records) == 0 {
		return nil, false
	}
	columns := make(map[string]int, len(records[0]))
	for idx, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := columns[key]; ok || key == "" {
			continue
		}
		columns[key] = idx
	}
	return &table{columns: columns, rows: records[1:]}, true
}

func (t *table) has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

func (t *table) value(row []string, name string) string {
	idx, ok := t.columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func detectTabular(content []byte) (Format, bool) {
	header := firstLine(content)
	if header == "" {
		return "", false
	}
	t, ok := newTable([]byte(header))
	if !ok || !t.has("url") || !t.has("title") {
		return "", false
	}
	if t.has("time_added") {
		return FormatPocket, true
	}
	return FormatInstapaper, true
}

// firstLine returns the header record, honouring quoted line breaks.
func firstLine(content []byte) string {
	inQuotes := false
	for i, ch := range content {
		switch ch {
		case '"':
			inQuotes = !inQuotes
		case '\n', '\r':
			if !inQuotes {
				return string(content[:i])
			}
		}
	}
	return string(content)
}

// writeRecord appends one CSV line, quoting fields that need it.
func writeRecord(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		if strings.ContainsAny(field, ",\"\r\n") {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(field)
	}
	sb.WriteString("\n")
}
