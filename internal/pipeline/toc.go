package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TOCMarker is the paragraph text replaced by the table of contents.
const TOCMarker = "[TOC]"

// Heading is a heading found in the converted fragment.
type Heading struct {
	Level int    // 1-6
	ID    string // anchor, empty if the heading has none
	Text  string // plain text content
}

// tocEntry is a heading with its nested subheadings.
type tocEntry struct {
	heading  Heading
	children []*tocEntry
}

// ExpandTOC collects the headings of an HTML fragment and replaces every
// paragraph consisting only of [TOC] with a nested list of links to them.
// The fragment is returned unchanged when it contains no marker.
func ExpandTOC(fragment string) (string, []Heading, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return "", nil, err
	}

	var headings []Heading
	var markers []*html.Node
	walk(root, func(n *html.Node) {
		if level := headingLevel(n); level > 0 {
			headings = append(headings, Heading{
				Level: level,
				ID:    attr(n, "id"),
				Text:  textContent(n),
			})
			return
		}
		if isTOCMarker(n) {
			markers = append(markers, n)
		}
	})

	if len(markers) == 0 {
		return fragment, headings, nil
	}

	tree := nestHeadings(headings)
	for _, m := range markers {
		m.Parent.InsertBefore(renderTOC(tree), m)
		m.Parent.RemoveChild(m)
	}

	out, err := renderFragment(root)
	if err != nil {
		return "", nil, err
	}
	return out, headings, nil
}

// Title returns the text of the first level-one heading, or fallback.
func Title(headings []Heading, fallback string) string {
	for _, h := range headings {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	return fallback
}

// nestHeadings arranges a flat heading list into a tree. A heading becomes
// the child of the closest preceding heading with a lower level.
func nestHeadings(headings []Heading) []*tocEntry {
	var roots []*tocEntry
	var stack []*tocEntry

	for _, h := range headings {
		e := &tocEntry{heading: h}
		for len(stack) > 0 && stack[len(stack)-1].heading.Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, e)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, e)
		}
		stack = append(stack, e)
	}
	return roots
}

// renderTOC builds <div class="toc"><ul>...</ul></div>.
func renderTOC(entries []*tocEntry) *html.Node {
	div := element(atom.Div, html.Attribute{Key: "class", Val: "toc"})
	div.AppendChild(renderList(entries))
	return div
}

func renderList(entries []*tocEntry) *html.Node {
	ul := element(atom.Ul)
	for _, e := range entries {
		li := element(atom.Li)
		a := element(atom.A, html.Attribute{Key: "href", Val: "#" + e.heading.ID})
		a.AppendChild(&html.Node{Type: html.TextNode, Data: e.heading.Text})
		li.AppendChild(a)
		if len(e.children) > 0 {
			li.AppendChild(renderList(e.children))
		}
		ul.AppendChild(li)
	}
	return ul
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

// headingLevel returns 1-6 for h1-h6 elements, 0 otherwise.
func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
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

// isTOCMarker matches <p>[TOC]</p>.
func isTOCMarker(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.P {
		return false
	}
	c := n.FirstChild
	return c != nil && c.NextSibling == nil &&
		c.Type == html.TextNode && strings.TrimSpace(c.Data) == TOCMarker
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates descendant text with whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// walk visits n and its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// parseFragment parses an HTML fragment in a body context and wraps the
// resulting nodes in a document node for uniform traversal.
func parseFragment(content string) (*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// renderFragment renders the children of a container built by parseFragment.
func renderFragment(container *html.Node) (string, error) {
	var buf strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
