package markdown

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/docpage/internal/doctree"
)

// ExtractHeadings returns the h1..h6 elements of rendered HTML in document
// order. Text is the heading's inner HTML. Headings without an id cannot be
// linked and are skipped.
func ExtractHeadings(rendered string) ([]doctree.Heading, error) {
	nodes, err := parseFragment(rendered)
	if err != nil {
		return nil, err
	}

	var headings []doctree.Heading
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.DataAtom); level > 0 {
				id := attr(n, "id")
				if id == "" {
					return nil
				}
				text, err := innerHTML(n)
				if err != nil {
					return err
				}
				headings = append(headings, doctree.Heading{Level: level, AnchorID: id, Text: text})
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range nodes {
		if err := walk(n); err != nil {
			return nil, err
		}
	}
	return headings, nil
}

// HasAnchor reports whether rendered HTML contains an element with the given
// id. A leading "#" on target is ignored.
func HasAnchor(rendered, target string) bool {
	id := strings.TrimPrefix(target, "#")
	if id == "" {
		return false
	}
	nodes, err := parseFragment(rendered)
	if err != nil {
		return false
	}
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && (attr(n, "id") == id || (n.DataAtom == atom.A && attr(n, "name") == id)) {
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	for _, n := range nodes {
		if find(n) {
			return true
		}
	}
	return false
}

func parseFragment(rendered string) ([]*html.Node, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(rendered), root)
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	return nodes, nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("render heading: %w", err)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
