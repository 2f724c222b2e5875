package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// nodeToText flattens a message body to plain text. Text runs are kept
// verbatim, <br> at any depth becomes a newline, and every other element
// contributes only its text. Each text node is visited exactly once.
func nodeToText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(&sb, c)
	}
	return sb.String()
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "br" {
			sb.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(sb, c)
		}
	}
}

// textRuns returns every non-blank text node under n in document order.
func textRuns(n *html.Node) []string {
	var runs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				runs = append(runs, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return runs
}

// collapseSpaces joins runs with single spaces and squeezes inner
// whitespace so "File:  a.jpg  (1 KB)" reads "File: a.jpg (1 KB)".
func collapseSpaces(runs []string) string {
	return strings.Join(strings.Fields(strings.Join(runs, " ")), " ")
}
