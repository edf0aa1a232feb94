package epub

import (
	"bytes"
	"encoding/xml"
	"strings"

	"golang.org/x/net/html"
)

// NavKind tags the shape of a raw navigation node. The source data
// presents three shapes and the builder switches on the tag rather than
// type-testing.
type NavKind int

const (
	// NavLeaf is an entry with a direct target and no children.
	NavLeaf NavKind = iota
	// NavGroup is a label-only node that exists to hold children.
	NavGroup
	// NavSection carries both a target and children.
	NavSection
)

// RawNav is one node of the package's navigation data, untangled from
// the NCX/nav-document encodings but not yet reconciled with the spine.
// Href is a ZIP-internal path, possibly with a fragment.
type RawNav struct {
	Kind     NavKind
	Label    string
	Href     string
	Children []RawNav
}

// parseNav extracts the navigation tree, preferring the EPUB 3 nav
// document and falling back to the EPUB 2 NCX. Returns nil when the
// package declares neither; failures are silent because navigation is
// advisory.
func parseNav(p *Package) []RawNav {
	if strings.HasPrefix(p.opf.Version, "3") {
		if nav := parseNavDocument(p); nav != nil {
			return nav
		}
	}
	return parseNCX(p)
}

// classify derives the shape tag from target and children.
func classify(href string, children []RawNav) NavKind {
	switch {
	case len(children) == 0:
		return NavLeaf
	case href == "":
		return NavGroup
	default:
		return NavSection
	}
}

// --- NCX (EPUB 2) ---

type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	NavMap  ncxNavMap `xml:"navMap"`
}

type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	Label    ncxNavLabel   `xml:"navLabel"`
	Content  ncxContent    `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

type ncxNavLabel struct {
	Text string `xml:"text"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// parseNCX locates the NCX through the spine's toc attribute and decodes it.
func parseNCX(p *Package) []RawNav {
	tocID := p.opf.Spine.Toc
	if tocID == "" {
		return nil
	}
	ncxItem, ok := p.manifestByID[tocID]
	if !ok {
		return nil
	}

	ncxPath := p.resolveOPFPath(ncxItem.Href)
	f := p.findFile(ncxPath)
	if f == nil {
		return nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil
	}

	var doc ncxDocument
	if err := xml.Unmarshal(stripBOM(preprocessHTMLEntities(data)), &doc); err != nil {
		return nil
	}
	return convertNavPoints(doc.NavMap.NavPoints, ncxPath)
}

func convertNavPoints(points []ncxNavPoint, ncxPath string) []RawNav {
	if len(points) == 0 {
		return nil
	}
	items := make([]RawNav, 0, len(points))
	for _, np := range points {
		item := RawNav{Label: strings.TrimSpace(np.Label.Text)}

		if src := strings.TrimSpace(np.Content.Src); src != "" {
			item.Href = resolveRelativePath(ncxPath, src)
		}
		item.Children = convertNavPoints(np.Children, ncxPath)
		item.Kind = classify(item.Href, item.Children)

		items = append(items, item)
	}
	return items
}

// --- Nav document (EPUB 3) ---

// parseNavDocument finds the manifest item with the "nav" property and
// parses its epub:type="toc" <nav> element.
func parseNavDocument(p *Package) []RawNav {
	var navItem *manifestItem
	for _, raw := range p.opf.Manifest.Items {
		for _, prop := range strings.Fields(raw.Properties) {
			if prop == "nav" {
				navItem = p.manifestByID[raw.ID]
				break
			}
		}
		if navItem != nil {
			break
		}
	}
	if navItem == nil {
		return nil
	}

	navPath := p.resolveOPFPath(navItem.Href)
	f := p.findFile(navPath)
	if f == nil {
		return nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	var tocNav *html.Node
	var findNav func(*html.Node)
	findNav = func(n *html.Node) {
		if tocNav != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "nav" && hasEpubType(n, "toc") {
			tocNav = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findNav(c)
		}
	}
	findNav(doc)
	if tocNav == nil {
		return nil
	}

	ol := findDescendant(tocNav, "ol")
	if ol == nil {
		return nil
	}
	return parseNavOL(ol, navPath)
}

func parseNavOL(ol *html.Node, basePath string) []RawNav {
	var items []RawNav
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			items = append(items, parseNavLI(c, basePath))
		}
	}
	return items
}

// parseNavLI reads one <li>: <a> (or <span> fallback) for label/target,
// nested <ol> for children.
func parseNavLI(li *html.Node, basePath string) RawNav {
	var item RawNav

	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "a":
			if item.Href == "" {
				if href := getAttr(c, "href"); href != "" {
					item.Href = resolveRelativePath(basePath, href)
				}
				item.Label = strings.TrimSpace(nodeText(c))
			}
		case "span":
			if item.Label == "" {
				item.Label = strings.TrimSpace(nodeText(c))
			}
		case "ol":
			item.Children = parseNavOL(c, basePath)
		}
	}

	item.Kind = classify(item.Href, item.Children)
	return item
}

func hasEpubType(n *html.Node, typeName string) bool {
	for _, t := range strings.Fields(getAttr(n, "epub:type")) {
		if t == typeName {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findDescendant(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
