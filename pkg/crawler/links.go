package crawler

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractLinks returns the raw href of every <a> element in document
// order. Hrefs are not resolved or filtered here.
func ExtractLinks(doc []byte) []string {
	var links []string
	z := html.NewTokenizer(bytes.NewReader(doc))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		t := z.Token()
		if t.DataAtom != atom.A {
			continue
		}
		for _, a := range t.Attr {
			if a.Key == "href" {
				if href := strings.TrimSpace(a.Val); href != "" {
					links = append(links, href)
				}
				break
			}
		}
	}
}
