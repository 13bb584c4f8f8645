package retrieve

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Elements whose content is never visible text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
	"canvas":   true,
	"template": true,
}

// Elements that start a new line.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "footer": true, "nav": true, "br": true, "ul": true,
	"ol": true, "tr": true, "pre": true, "table": true,
}

// HTMLText returns the visible text of an HTML document, one block per
// line, with runs of whitespace collapsed. The document is parsed into a
// tree, so omitted end tags (a missing </head>, say) are implied the way a
// browser would.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var w textWriter
	w.walk(doc)
	return strings.TrimSpace(w.sb.String()), nil
}

type textWriter struct {
	sb strings.Builder
}

func (w *textWriter) newline() {
	if w.sb.Len() > 0 && !strings.HasSuffix(w.sb.String(), "\n") {
		w.sb.WriteByte('\n')
	}
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		words := strings.Fields(n.Data)
		if len(words) == 0 {
			return
		}
		if w.sb.Len() > 0 && !strings.HasSuffix(w.sb.String(), "\n") {
			w.sb.WriteByte(' ')
		}
		w.sb.WriteString(strings.Join(words, " "))
		return
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.newline()
	}
}
