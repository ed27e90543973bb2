package formats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/deepr/internal/entities"
)

// TimeLayout is the timestamp layout used by every exchange format.
const TimeLayout = "2006-01-02 15:04:05"

type Format string

const (
	FormatCSV         Format = "csv"
	FormatHTML        Format = "html"
	FormatHTMLFirefox Format = "html-firefox"
	FormatJSON        Format = "json"
	FormatText        Format = "text"
	FormatMarkdown    Format = "markdown"
)

var (
	ErrUnknownFormat      = errors.New("unknown format")
	ErrEncodeNotSupported = errors.New("format does not support encoding")
)

// Record is the portable row shape shared by all codecs.
type Record struct {
	Link         string   `json:"link"`
	Name         string   `json:"name,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	OpenedCount  int      `json:"openedCount,omitempty"`
	IsFavourite  bool     `json:"isFavourite,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	LastOpenedAt string   `json:"lastOpenedAt,omitempty"`
	ProfileName  string   `json:"profileName,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Decoded is the result of decoding one document.
type Decoded struct {
	Records []Record
	// Skipped counts rows that were malformed and dropped.
	Skipped int
}

type Decoder interface {
	Decode(data []byte) (*Decoded, error)
}

type Encoder interface {
	Encode(records []Record) ([]byte, error)
}

// ParseFormat resolves a user-supplied format name. File extensions are accepted.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "csv":
		return FormatCSV, nil
	case "html", "htm", "netscape", "chrome":
		return FormatHTML, nil
	case "html-firefox", "firefox", "safari":
		return FormatHTMLFirefox, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Extension returns the file extension written for a format.
func (f Format) Extension() string {
	switch f {
	case FormatHTML, FormatHTMLFirefox:
		return "html"
	case FormatText:
		return "txt"
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

func DecoderFor(f Format) (Decoder, error) {
	switch f {
	case FormatCSV:
		return CSVCodec{}, nil
	case FormatHTML:
		return NetscapeDecoder{}, nil
	case FormatHTMLFirefox:
		return FirefoxDecoder{}, nil
	case FormatJSON:
		return JSONCodec{}, nil
	case FormatText:
		return TextDecoder{}, nil
	case FormatMarkdown:
		return MarkdownCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func EncoderFor(f Format) (Encoder, error) {
	switch f {
	case FormatCSV:
		return CSVCodec{}, nil
	case FormatHTML, FormatHTMLFirefox:
		return BookmarkEncoder{}, nil
	case FormatJSON:
		return JSONCodec{}, nil
	case FormatMarkdown:
		return MarkdownCodec{}, nil
	case FormatText:
		return nil, fmt.Errorf("%w: %q", ErrEncodeNotSupported, f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// FormatTime renders t in TimeLayout; the zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
}

// RecordFromLink converts a stored link (with Tags and Profile loaded).
func RecordFromLink(link entities.Link) Record {
	r := Record{
		Link:        link.Link,
		Name:        link.Name,
		CreatedAt:   FormatTime(link.CreatedAt),
		OpenedCount: link.OpenedCount,
		IsFavourite: link.IsFavourite,
		Notes:       link.Notes,
		Thumbnail:   link.Thumbnail,
		ProfileName: link.Profile.Name,
		Tags:        link.TagNames(),
	}
	if link.LastOpenedAt != nil {
		r.LastOpenedAt = FormatTime(*link.LastOpenedAt)
	}
	return r
}

// RecordsFromLinks converts a slice of stored links preserving order.
func RecordsFromLinks(links []entities.Link) []Record {
	records := make([]Record, 0, len(links))
	for _, l := range links {
		records = append(records, RecordFromLink(l))
	}
	return records
}

// splitTags splits a comma-joined tag field, dropping blanks.
func splitTags(field string) []string {
	var tags []string
	for _, t := range strings.Split(field, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// mergeTags appends names not already present in dst.
func mergeTags(dst []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, d := range dst {
			if d == n {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, n)
		}
	}
	return dst
}
