package crawl

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// pageContent holds what extraction pulled out of one HTML document.
type pageContent struct {
	Title string
	Text  string
	Links []string
}

// extractContent parses an HTML document and returns its title, a plain-text
// rendering of the body, and every href found. Headings keep a markdown-style
// prefix so downstream splitting can cut at section boundaries. Script, style
// and nav-like elements are dropped.
func extractContent(r io.Reader) (pageContent, error) {
	root, err := html.Parse(r)
	if err != nil {
		return pageContent{}, err
	}

	var content pageContent
	var sb strings.Builder
	walkNode(root, &sb, &content)
	content.Text = collapseBlankLines(sb.String())
	return content, nil
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"footer":   true,
	"iframe":   true,
	"svg":      true,
}

var blockElements = map[string]bool{
	"p":          true,
	"div":        true,
	"li":         true,
	"tr":         true,
	"table":      true,
	"ul":         true,
	"ol":         true,
	"section":    true,
	"article":    true,
	"main":       true,
	"header":     true,
	"pre":        true,
	"blockquote": true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
}

func walkNode(n *html.Node, sb *strings.Builder, content *pageContent) {
	if n.Type == html.ElementNode {
		if skippedElements[n.Data] {
			return
		}
		switch n.Data {
		case "title":
			if content.Title == "" {
				content.Title = strings.TrimSpace(textOf(n))
			}
			return
		case "a":
			if href := attrValue(n, "href"); href != "" {
				content.Links = append(content.Links, href)
			}
		case "h1":
			sb.WriteString("\n# ")
		case "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n## ")
		case "br":
			sb.WriteString("\n")
		default:
			if blockElements[n.Data] {
				sb.WriteString("\n\n")
			}
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNode(c, sb, content)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteString("\n\n")
	}
}

// textOf returns the concatenated text content of a node's subtree.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// collapseBlankLines trims trailing spaces and squeezes runs of blank lines
// down to a single paragraph break.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
