package server

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// InjectScript inserts snippet immediately before the last closing body tag
// of doc. Documents without a body tag get the snippet appended.
func InjectScript(doc []byte, snippet string) []byte {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
	insertAt := -1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if strings.EqualFold(string(name), "body") {
				insertAt = offset
			}
		}
		offset += raw
	}

	if insertAt < 0 || insertAt > len(doc) {
		insertAt = len(doc)
	}

	out := make([]byte, 0, len(doc)+len(snippet))
	out = append(out, doc[:insertAt]...)
	out = append(out, snippet...)
	return append(out, doc[insertAt:]...)
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}
