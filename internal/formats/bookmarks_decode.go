package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NetscapeDecoder reads bookmark files exported by Chromium-based browsers.
// It parses the document tree and names each nested list after the <H3>
// heading that precedes it.
type NetscapeDecoder struct{}

// FirefoxDecoder reads bookmark files exported by Firefox and Safari. It
// streams tokens and keeps an explicit folder stack, which copes with the
// unbalanced markup those exports contain. The TAGS attribute is honoured and
// place: query bookmarks are ignored.
type FirefoxDecoder struct{}

func (NetscapeDecoder) Decode(data []byte) (*Decoded, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks: %w", err)
	}
	c := newBookmarkCollector()
	walkBookmarkTree(doc, nil, c)
	return c.decoded(), nil
}

func walkBookmarkTree(n *html.Node, path []string, c *bookmarkCollector) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.A:
			rec, ok := anchorRecord(attrMap(n.Attr), strings.TrimSpace(nodeText(n)), path)
			if ok {
				if idx := c.add(rec); idx >= 0 {
					if notes := siblingNotes(n); notes != "" && c.records[idx].Notes == "" {
						c.records[idx].Notes = notes
					}
				}
			} else if !isIgnoredHref(attrMap(n.Attr)["href"]) {
				c.skipped++
			}
			return
		case atom.H3:
			return
		case atom.Dl:
			if folder := precedingHeading(n); folder != "" {
				path = append(path[:len(path):len(path)], folder)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkBookmarkTree(child, path, c)
	}
}

// precedingHeading returns the text of the <H3> right before a list, if any.
// A folder with a description (<H3>..</H3><DD>desc<DL>) has its list nested
// in the <DD>, so the heading is looked up before the <DD> instead.
func precedingHeading(n *html.Node) string {
	if p := n.Parent; p != nil && p.Type == html.ElementNode && p.DataAtom == atom.Dd {
		return headingBefore(p)
	}
	return headingBefore(n)
}

func headingBefore(n *html.Node) string {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		switch s.Type {
		case html.TextNode:
			if strings.TrimSpace(s.Data) != "" {
				return ""
			}
		case html.ElementNode:
			switch s.DataAtom {
			case atom.H3:
				return strings.TrimSpace(nodeText(s))
			case atom.Dt:
				return lastHeadingChild(s)
			}
			return ""
		}
	}
	return ""
}

func lastHeadingChild(n *html.Node) string {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.H3 {
			return strings.TrimSpace(nodeText(c))
		}
	}
	return ""
}

// siblingNotes returns the <DD> description following the anchor's <DT>.
func siblingNotes(a *html.Node) string {
	dt := a.Parent
	if dt == nil || dt.DataAtom != atom.Dt {
		return ""
	}
	for s := dt.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		if s.DataAtom == atom.Dd {
			return strings.TrimSpace(ownText(s))
		}
		return ""
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ownText collects text directly under n, stopping at nested lists.
func ownText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func attrMap(attrs []html.Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

func (FirefoxDecoder) Decode(data []byte) (*Decoded, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	c := newBookmarkCollector()

	var (
		folders       []string
		pendingFolder string
		inHeading     bool
		inAnchor      bool
		inNotes       bool
		anchorAttrs   map[string]string
		lastIdx       = -1
		text          strings.Builder
	)

	flushNotes := func() {
		if inNotes && lastIdx >= 0 && c.records[lastIdx].Notes == "" {
			c.records[lastIdx].Notes = strings.TrimSpace(text.String())
		}
		inNotes = false
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				flushNotes()
				return c.decoded(), nil
			}
			return nil, fmt.Errorf("failed to tokenize bookmarks: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.H3:
				flushNotes()
				// A <DD> after the heading describes the folder, not the previous link.
				lastIdx = -1
				inHeading = true
				text.Reset()
			case atom.Dl:
				flushNotes()
				folders = append(folders, pendingFolder)
				pendingFolder = ""
			case atom.A:
				flushNotes()
				inAnchor = true
				anchorAttrs = attrMap(tok.Attr)
				text.Reset()
			case atom.Dd:
				inNotes = true
				text.Reset()
			case atom.Dt:
				flushNotes()
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.H3:
				if inHeading {
					pendingFolder = strings.TrimSpace(text.String())
				}
				inHeading = false
			case atom.Dl:
				flushNotes()
				if len(folders) > 0 {
					folders = folders[:len(folders)-1]
				}
			case atom.A:
				if !inAnchor {
					continue
				}
				inAnchor = false
				rec, ok := anchorRecord(anchorAttrs, strings.TrimSpace(text.String()), folderPath(folders))
				if !ok {
					if !isIgnoredHref(anchorAttrs["href"]) {
						c.skipped++
					}
					lastIdx = -1
					continue
				}
				rec.Tags = mergeTags(rec.Tags, splitTags(anchorAttrs["tags"])...)
				lastIdx = c.add(rec)
			}

		case html.TextToken:
			if inHeading || inAnchor || inNotes {
				text.Write(z.Text())
			}
		}
	}
}

func folderPath(stack []string) []string {
	var path []string
	for _, f := range stack {
		if f != "" {
			path = append(path, f)
		}
	}
	return path
}

func isIgnoredHref(href string) bool {
	href = strings.TrimSpace(strings.ToLower(href))
	return strings.HasPrefix(href, "place:") || strings.HasPrefix(href, "javascript:")
}

// anchorRecord builds a record from an <A> element. It reports false for
// anchors that are not usable bookmarks.
func anchorRecord(attrs map[string]string, title string, path []string) (Record, bool) {
	href := strings.TrimSpace(attrs["href"])
	if href == "" || isIgnoredHref(href) {
		return Record{}, false
	}

	rec := Record{
		Link:        href,
		Name:        title,
		IsFavourite: attrs["icon"] == favouriteIcon,
		Tags:        append([]string(nil), path...),
	}
	if secs, err := strconv.ParseInt(strings.TrimSpace(attrs["add_date"]), 10, 64); err == nil && secs > 0 {
		rec.CreatedAt = FormatTime(time.Unix(secs, 0))
	}
	if rec.Name == href {
		rec.Name = ""
	}
	return rec, true
}

// bookmarkCollector flattens bookmarks, merging repeated URIs so a link filed
// under several folders comes back as one record carrying every folder tag.
type bookmarkCollector struct {
	records []Record
	index   map[string]int
	skipped int
}

func newBookmarkCollector() *bookmarkCollector {
	return &bookmarkCollector{index: make(map[string]int)}
}

func (c *bookmarkCollector) add(rec Record) int {
	if idx, ok := c.index[rec.Link]; ok {
		existing := &c.records[idx]
		existing.Tags = mergeTags(existing.Tags, rec.Tags...)
		existing.IsFavourite = existing.IsFavourite || rec.IsFavourite
		if existing.Name == "" {
			existing.Name = rec.Name
		}
		return idx
	}
	c.index[rec.Link] = len(c.records)
	c.records = append(c.records, rec)
	return len(c.records) - 1
}

func (c *bookmarkCollector) decoded() *Decoded {
	return &Decoded{Records: c.records, Skipped: c.skipped}
}
