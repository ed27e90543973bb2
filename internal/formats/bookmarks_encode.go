package formats

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const favouriteIcon = "⭐"

// BookmarkEncoder writes a Netscape bookmark file that browsers can import.
// Tagged links are written once per tag inside a folder named after the tag;
// untagged links sit in the root list.
type BookmarkEncoder struct{}

func (BookmarkEncoder) Encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	buf.WriteString("<!-- This is an automatically generated file.\n     It will be read and overwritten.\n     DO NOT EDIT! -->\n")
	buf.WriteString(`<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">` + "\n")
	buf.WriteString("<TITLE>Bookmarks</TITLE>\n")
	buf.WriteString("<H1>Bookmarks</H1>\n")
	buf.WriteString("<DL><p>\n")

	byTag := make(map[string][]Record)
	var untagged []Record
	for _, r := range records {
		if len(r.Tags) == 0 {
			untagged = append(untagged, r)
			continue
		}
		for _, tag := range r.Tags {
			byTag[tag] = append(byTag[tag], r)
		}
	}

	tagNames := make([]string, 0, len(byTag))
	for tag := range byTag {
		tagNames = append(tagNames, tag)
	}
	sort.Strings(tagNames)

	for _, tag := range tagNames {
		buf.WriteString("    <DT><H3>" + html.EscapeString(tag) + "</H3>\n")
		buf.WriteString("    <DL><p>\n")
		for _, r := range byTag[tag] {
			writeBookmark(&buf, r, "        ")
		}
		buf.WriteString("    </DL><p>\n")
	}

	for _, r := range untagged {
		writeBookmark(&buf, r, "    ")
	}

	buf.WriteString("</DL><p>\n")
	return buf.Bytes(), nil
}

func writeBookmark(buf *bytes.Buffer, r Record, indent string) {
	buf.WriteString(indent)
	buf.WriteString(`<DT><A HREF="`)
	buf.WriteString(html.EscapeString(r.Link))
	buf.WriteString(`" ADD_DATE="`)
	buf.WriteString(strconv.FormatInt(addDate(r.CreatedAt), 10))
	buf.WriteString(`"`)
	if len(r.Tags) > 0 {
		buf.WriteString(` TAGS="`)
		buf.WriteString(html.EscapeString(strings.Join(r.Tags, ",")))
		buf.WriteString(`"`)
	}
	if r.IsFavourite {
		buf.WriteString(` ICON="` + favouriteIcon + `"`)
	}
	buf.WriteString(">")
	title := r.Name
	if title == "" {
		title = r.Link
	}
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</A>\n")

	if notes := strings.TrimSpace(r.Notes); notes != "" {
		buf.WriteString(indent)
		buf.WriteString("<DD>")
		buf.WriteString(html.EscapeString(notes))
		buf.WriteString("\n")
	}
}

// addDate converts a stored timestamp to epoch seconds, 0 when unparseable.
func addDate(createdAt string) int64 {
	t, err := ParseTime(createdAt)
	if err != nil {
		return 0
	}
	return t.Unix()
}
