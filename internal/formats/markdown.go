package formats

import (
	"bufio"
	"bytes"
	"errors"
	"strconv"
	"strings"
)

const (
	MarkdownHeader    = "| Name | Link | Created At | Opened Count |"
	MarkdownSeparator = "|------|------|------------|--------------|"
)

var ErrInvalidMarkdown = errors.New("markdown file does not contain the link table header")

// MarkdownCodec reads and writes the human-editable sync table.
type MarkdownCodec struct{}

func (MarkdownCodec) Encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(MarkdownHeader + "\n")
	buf.WriteString(MarkdownSeparator + "\n")
	for _, r := range records {
		buf.WriteString("| ")
		buf.WriteString(escapeCell(r.Name))
		buf.WriteString(" | ")
		buf.WriteString(escapeCell(r.Link))
		buf.WriteString(" | ")
		buf.WriteString(r.CreatedAt)
		buf.WriteString(" | ")
		buf.WriteString(strconv.Itoa(r.OpenedCount))
		buf.WriteString(" |\n")
	}
	return buf.Bytes(), nil
}

func (MarkdownCodec) Decode(data []byte) (*Decoded, error) {
	if err := ValidateMarkdown(data); err != nil {
		return nil, err
	}

	result := &Decoded{}
	inTable := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == MarkdownHeader || line == MarkdownSeparator:
			inTable = true
			continue
		case !inTable || line == "":
			continue
		case !strings.HasPrefix(line, "|"):
			inTable = false
			continue
		}

		cells := splitRow(line)
		if len(cells) < 2 || strings.TrimSpace(cells[1]) == "" {
			result.Skipped++
			continue
		}
		rec := Record{
			Name: unescapeCell(strings.TrimSpace(cells[0])),
			Link: unescapeCell(strings.TrimSpace(cells[1])),
		}
		if len(cells) > 2 {
			rec.CreatedAt = strings.TrimSpace(cells[2])
		}
		if len(cells) > 3 {
			if n, err := strconv.Atoi(strings.TrimSpace(cells[3])); err == nil {
				rec.OpenedCount = n
			}
		}
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateMarkdown accepts empty content, or content carrying the exact
// header line followed by the separator line.
func ValidateMarkdown(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != MarkdownHeader {
			continue
		}
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == MarkdownSeparator {
			return nil
		}
	}
	return ErrInvalidMarkdown
}

// escapeCell keeps a value on one table row. A literal "<br>" is written as
// `\<br>` so it is not read back as a line break.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "<br>", `\<br>`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// unescapeCell reverses escapeCell in one pass. Backslashes before any
// other character are kept, so hand-typed paths survive.
func unescapeCell(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], `\<br>`):
			b.WriteString("<br>")
			i += len(`\<br>`) - 1
		case s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '|'):
			b.WriteByte(s[i+1])
			i++
		case strings.HasPrefix(s[i:], "<br>"):
			b.WriteByte('\n')
			i += len("<br>") - 1
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitRow splits a table row on unescaped pipes, dropping the outer ones.
func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	if trailing := len(line) - len(strings.TrimRight(line, `\`)); trailing%2 == 1 {
		line += "|"
	}

	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == '\\' && i+1 < len(line) && (line[i+1] == '|' || line[i+1] == '\\') {
			cur.WriteByte(ch)
			cur.WriteByte(line[i+1])
			i++
			continue
		}
		if ch == '|' {
			cells = append(cells, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	return append(cells, cur.String())
}
