package fetcher

import (
	"strings"

	"golang.org/x/net/html"
)

// Tags to skip (non-content)
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
}

// PlainText flattens an HTML description fragment into a single line of text
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		// block elements separate words
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br":
				sb.WriteString(" ")
			}
		}
	}
	extract(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
