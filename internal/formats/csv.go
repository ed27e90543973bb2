package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the fixed column order written by CSVCodec.
var CSVHeader = []string{"link", "createdAt", "openedCount", "name", "notes", "tags", "thumbnail", "isFavourite", "profileName"}

const csvNameColumn = 3

// CSVCodec reads and writes RFC 4180 link exports.
type CSVCodec struct{}

func (CSVCodec) Encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Link,
			r.CreatedAt,
			strconv.Itoa(r.OpenedCount),
			r.Name,
			r.Notes,
			strings.Join(r.Tags, ","),
			r.Thumbnail,
			strconv.FormatBool(r.IsFavourite),
			r.ProfileName,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode maps columns by header name. A row with more fields than the header
// comes from an old export that did not quote names; the surplus fields are
// folded back into the name.
func (CSVCodec) Decode(data []byte) (*Decoded, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	result := &Decoded{}

	first, err := r.Read()
	if errors.Is(err, io.EOF) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns, isHeader := headerIndex(first)
	width := len(first)
	if !isHeader {
		// Headerless file: assume the current column order.
		columns = defaultColumns()
		width = len(CSVHeader)
		appendCSVRecord(result, first, columns, width)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		appendCSVRecord(result, row, columns, width)
	}

	return result, nil
}

func headerIndex(row []string) (map[string]int, bool) {
	columns := make(map[string]int, len(row))
	for i, name := range row {
		columns[strings.TrimSpace(name)] = i
	}
	_, ok := columns["link"]
	return columns, ok
}

func defaultColumns() map[string]int {
	columns := make(map[string]int, len(CSVHeader))
	for i, name := range CSVHeader {
		columns[name] = i
	}
	return columns
}

func appendCSVRecord(result *Decoded, row []string, columns map[string]int, width int) {
	if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
		return
	}

	extra := 0
	nameIdx, hasName := columns["name"]
	if hasName && nameIdx == csvNameColumn && len(row) > width {
		extra = len(row) - width
	}

	field := func(name string) string {
		idx, ok := columns[name]
		if !ok {
			return ""
		}
		if extra > 0 && idx > nameIdx {
			idx += extra
		}
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	rec := Record{
		Link:        strings.TrimSpace(field("link")),
		CreatedAt:   strings.TrimSpace(field("createdAt")),
		Notes:       field("notes"),
		Tags:        splitTags(field("tags")),
		Thumbnail:   strings.TrimSpace(field("thumbnail")),
		ProfileName: strings.TrimSpace(field("profileName")),
	}
	if rec.Link == "" {
		result.Skipped++
		return
	}

	if extra > 0 {
		parts := make([]string, 0, extra+1)
		for _, p := range row[nameIdx : nameIdx+extra+1] {
			parts = append(parts, strings.TrimSpace(p))
		}
		rec.Name = strings.Join(parts, ", ")
	} else {
		rec.Name = field("name")
	}

	if n, err := strconv.Atoi(strings.TrimSpace(field("openedCount"))); err == nil && n > 0 {
		rec.OpenedCount = n
	}
	if fav, err := strconv.ParseBool(strings.TrimSpace(field("isFavourite"))); err == nil {
		rec.IsFavourite = fav
	}

	result.Records = append(result.Records, rec)
}
