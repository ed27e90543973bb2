package formats

import (
	"strings"
)

// TextDecoder reads newline- or comma-separated link lists.
type TextDecoder struct{}

func (TextDecoder) Decode(data []byte) (*Decoded, error) {
	result := &Decoded{}
	for _, token := range SplitLinkList(string(data)) {
		result.Records = append(result.Records, Record{Link: token})
	}
	return result, nil
}

// SplitLinkList splits on commas only when the input has more than one comma
// token and at least half of them look like links. Otherwise it splits on
// newlines, so links whose query strings contain commas stay intact.
func SplitLinkList(input string) []string {
	tokens := strings.Split(input, ",")
	if len(tokens) > 1 {
		likeCount := 0
		for _, t := range tokens {
			if looksLikeLink(t) {
				likeCount++
			}
		}
		if likeCount*2 >= len(tokens) {
			return compact(tokens)
		}
	}
	return compact(strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n"))
}

func looksLikeLink(token string) bool {
	if strings.Contains(token, "\n") {
		return false
	}
	return strings.Contains(token, "://") || strings.Contains(token, ".")
}

func compact(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
