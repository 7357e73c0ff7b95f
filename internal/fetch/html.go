package fetch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noiseTags never carry main content.
var noiseTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Nav: true, atom.Footer: true,
	atom.Header: true, atom.Iframe: true, atom.Noscript: true, atom.Svg: true,
	atom.Img: true, atom.Form: true,
}

func parseHTML(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// removeNodes detaches every descendant of n matching pred.
func removeNodes(n *html.Node, pred func(*html.Node) bool) {
	var doomed []*html.Node
	walk(n, func(c *html.Node) bool {
		if c != n && pred(c) {
			doomed = append(doomed, c)
			return false
		}
		return true
	})
	for _, c := range doomed {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
	}
}

// find returns the first node in document order matching pred.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n depth-first; visit returning false skips the subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, visit)
		c = next
	}
}

// textLines collects trimmed, non-empty text nodes one per line.
func textLines(n *html.Node) []string {
	var lines []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				lines = append(lines, t)
			}
		}
		return true
	})
	return lines
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

func hasAttr(a atom.Atom, key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != a {
			return false
		}
		for _, at := range n.Attr {
			if at.Key == key && at.Val == value {
				return true
			}
		}
		return false
	}
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, at := range n.Attr {
			if at.Key == "class" {
				for _, c := range strings.Fields(at.Val) {
					if c == class {
						return true
					}
				}
			}
		}
		return false
	}
}

func firstOf(root *html.Node, preds ...func(*html.Node) bool) *html.Node {
	for _, p := range preds {
		if n := find(root, p); n != nil {
			return n
		}
	}
	return nil
}
