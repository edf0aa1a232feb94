package assets

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/inkwellapp/inkwell-server/internal/epub"
)

// RewriteHTML rewrites image references inside a sanitized HTML fragment
// so they point at extracted files. chapterPath is the ZIP-internal path
// of the content file the fragment came from; references resolve
// relative to it. References that match nothing in refs are preserved
// verbatim.
func RewriteHTML(fragment, chapterPath string, refs map[string]string) string {
	if fragment == "" || len(refs) == 0 {
		return fragment
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	body := findBody(doc)
	if body == nil {
		return fragment
	}
	rewriteNode(body, chapterPath, refs)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return fragment
		}
	}
	return buf.String()
}

func rewriteNode(n *html.Node, chapterPath string, refs map[string]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "img", "source":
			rewriteAttr(n, "src", chapterPath, refs)
		case "image":
			// SVG image element; both href forms occur in the wild.
			rewriteAttr(n, "href", chapterPath, refs)
			rewriteAttr(n, "xlink:href", chapterPath, refs)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, chapterPath, refs)
	}
}

func rewriteAttr(n *html.Node, key, chapterPath string, refs map[string]string) {
	for i, a := range n.Attr {
		if a.Key != key || a.Val == "" {
			continue
		}
		if stored, ok := resolveRef(a.Val, chapterPath, refs); ok {
			n.Attr[i].Val = stored
		}
	}
}

// resolveRef maps one src value to a stored path: exact resolved path
// first, bare basename second. External and inline references pass
// through.
func resolveRef(src, chapterPath string, refs map[string]string) (string, bool) {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return "", false
	}
	src, _, _ = strings.Cut(src, "#")
	if src == "" {
		return "", false
	}
	// Content files escape paths ("My%20Cover.jpg"); the zip does not.
	if unescaped, err := url.PathUnescape(src); err == nil {
		src = unescaped
	}

	if resolved := resolveAgainst(chapterPath, src); resolved != "" {
		if stored, ok := refs[resolved]; ok {
			return stored, true
		}
	}
	if stored, ok := refs[path.Base(src)]; ok {
		return stored, true
	}
	return "", false
}

func resolveAgainst(chapterPath, src string) string {
	if chapterPath == "" {
		return path.Clean(src)
	}
	return epub.ResolveRelative(chapterPath, src)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}
