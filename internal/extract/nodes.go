package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// nodeText returns the collapsed text content of n, including text nodes themselves.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(sb.String())
}

// nthSibling follows NextSibling hops times. Whitespace text nodes count as hops.
func nthSibling(n *html.Node, hops int) *html.Node {
	for i := 0; i < hops && n != nil; i++ {
		n = n.NextSibling
	}
	return n
}

// siblingDescription looks for text starting with sentinel at hops, hops+1, ...
// for the given number of attempts. It returns "" when nothing matches or the
// sibling chain ends early.
func siblingDescription(label *html.Node, sentinel string, hops, attempts int) string {
	for i := 0; i < attempts; i++ {
		sib := nthSibling(label, hops+i)
		if sib == nil {
			return ""
		}
		if text := nodeText(sib); strings.HasPrefix(text, sentinel) {
			return text
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
