package graph

import (
	"net/url"
	"strings"
)

// URLSuffix marks member names whose string value is a link.
const URLSuffix = "_url"

// ExtractLinks returns every link-shaped string in v: values stored under a
// key ending in URLSuffix, and any string that is an absolute http(s) URL.
// Results follow depth-first source order and are not de-duplicated.
func ExtractLinks(v Value) []string {
	var links []string
	Walk(v, func(key string, node Value) {
		s, ok := node.(String)
		if !ok {
			return
		}
		if strings.HasSuffix(key, URLSuffix) || IsAbsoluteHTTP(string(s)) {
			links = append(links, string(s))
		}
	})
	return links
}

// ExtractLinksJSON decodes data and extracts its links.
func ExtractLinksJSON(data []byte) ([]string, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(v), nil
}

// IsAbsoluteHTTP reports whether s parses as an absolute http or https URL.
func IsAbsoluteHTTP(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}
