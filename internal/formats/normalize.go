package formats

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidLink = errors.New("invalid link")

// opaqueSchemes are schemes whose URIs carry no "//" authority part.
var opaqueSchemes = []string{"mailto:", "tel:", "sms:", "geo:", "intent:", "market:", "data:"}

// NormalizeLink trims raw and prepends https:// when it carries no scheme.
// Blank input normalizes to "".
func NormalizeLink(raw string) string {
	link := strings.TrimSpace(raw)
	if link == "" {
		return ""
	}
	if strings.Contains(link, "://") {
		return link
	}
	lower := strings.ToLower(link)
	for _, scheme := range opaqueSchemes {
		if strings.HasPrefix(lower, scheme) {
			return link
		}
	}
	return "https://" + link
}

// ValidateLink reports whether link parses to a URI with a scheme and
// something after it.
func ValidateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return ErrInvalidLink
	}
	u, err := url.Parse(link)
	if err != nil {
		return errors.Join(ErrInvalidLink, err)
	}
	if u.Scheme == "" {
		return ErrInvalidLink
	}
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return ErrInvalidLink
	}
	return nil
}
