// Package sanitize strips executable and interactive markup from content
// fragments, leaving structural HTML that is safe to render directly plus
// a plain-text projection for search.
package sanitize

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strippedTags are removed entirely, including their content.
var strippedTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Iframe: true,
	atom.Video:  true,
	atom.Audio:  true,
	atom.Object: true,
	atom.Embed:  true,
	atom.Form:   true,
	atom.Button: true,
	atom.Nav:    true,
	atom.Input:  true,
}

// Result is the output of sanitizing one fragment.
type Result struct {
	// HTML is the sanitized inner markup of the fragment's body.
	HTML string
	// Text is the plain-text projection of HTML with all whitespace
	// runs collapsed to single spaces.
	Text string
}

// Fragment sanitizes a raw markup fragment. It is total: malformed input
// degrades to an empty structural result with best-effort text, it never
// returns an error. No network access or code execution happens here;
// downstream renders the output as-is, so this is the security boundary.
func Fragment(raw []byte) Result {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		// html.Parse recovers from almost anything; if it does give up,
		// fall back to a text-only projection of the raw bytes.
		return Result{Text: CollapseWhitespace(string(raw))}
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return Result{}
	}

	cleanNode(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return Result{Text: CollapseWhitespace(textContent(body))}
		}
	}

	return Result{
		HTML: strings.TrimSpace(buf.String()),
		Text: CollapseWhitespace(textContent(body)),
	}
}

// CollapseWhitespace reduces every run of whitespace to a single space
// and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// findElement performs a depth-first search for a node with the given atom tag.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

// cleanNode recursively removes stripped elements and comments, and
// sanitizes attributes on everything that remains.
func cleanNode(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && strippedTags[c.DataAtom]:
			n.RemoveChild(c)
		default:
			if c.Type == html.ElementNode {
				sanitizeAttributes(c)
			}
			cleanNode(c)
		}
	}
}

// sanitizeAttributes removes event handler attributes (on*) and URI
// attributes with unsafe schemes from the node.
func sanitizeAttributes(n *html.Node) {
	cleaned := n.Attr[:0]
	for _, attr := range n.Attr {
		keyLower := strings.ToLower(attr.Key)
		if strings.HasPrefix(keyLower, "on") {
			continue
		}
		if isURIAttribute(attr) && !isSafeURI(attr.Val) {
			continue
		}
		cleaned = append(cleaned, attr)
	}
	n.Attr = cleaned
}

// isURIAttribute reports whether attr may contain a URL and should be
// protocol-checked.
func isURIAttribute(attr html.Attribute) bool {
	if attr.Key == "href" || attr.Key == "src" {
		return true
	}
	if attr.Namespace == "xlink" && attr.Key == "href" {
		return true
	}
	return attr.Key == "xlink:href"
}

// isSafeURI validates URI values for href/src-like attributes.
// Relative paths, fragments, http(s), mailto, and data:image/* are allowed.
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") ||
		strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") || strings.HasPrefix(v, "?") {
		return true
	}

	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return true
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	default:
		return false
	}
}

// textContent recursively collects all text inside n.
// A space separates adjacent text nodes so that words from sibling
// elements do not run together.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
