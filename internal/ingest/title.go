package ingest

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// resolveTitle picks a title for a crawled page: the HTML title when present,
// else the first level 1 heading in the extracted text, else the first
// level 2 heading, else a name derived from the URL path.
func resolveTitle(pageURL, htmlTitle, pageText string) string {
	if title := strings.TrimSpace(htmlTitle); title != "" {
		return title
	}
	if title := firstHeading([]byte(pageText)); title != "" {
		return title
	}
	return titleFromURL(pageURL)
}

// firstHeading returns the first h1 in the document, or the first h2 when no
// h1 exists.
func firstHeading(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	doc := markdown.Parser().Parse(text.NewReader(content))

	var firstH1, firstH2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			headingText := strings.TrimSpace(textFromNode(heading, content))
			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
			} else if heading.Level == 2 && firstH2 == "" {
				firstH2 = headingText
			}
			if firstH1 != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	return firstH2
}

func textFromNode(n ast.Node, content []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if textNode, ok := c.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(content))
		} else {
			sb.WriteString(textFromNode(c, content))
		}
	}
	return sb.String()
}

// titleFromURL turns the last URL path segment into a readable title, falling
// back to the host for root pages.
func titleFromURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	segment := strings.Trim(parsed.Path, "/")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	if segment == "" {
		return parsed.Hostname()
	}

	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	words := strings.Fields(segment)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
