package epub

import (
	"encoding/xml"
	"strings"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata holds the raw Dublin Core elements.
type opfMetadata struct {
	Titles       []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publishers   []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Dates        []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ date"`
	Descriptions []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ description"`
	Subjects     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Metas        []opfMeta      `xml:"meta"`
}

type opfDCElement struct {
	Value string `xml:",chardata"`
}

// opfMeta covers both the EPUB 2 name/content form and the EPUB 3
// property form; only the EPUB 2 cover pointer is consumed here.
type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// manifestItem is the processed representation of a manifest entry.
type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// parseOPF decodes the OPF file content.
func parseOPF(data []byte) (*opfPackage, error) {
	data = stripBOM(preprocessHTMLEntities(data))

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedSource, "parse OPF")
	}

	if pkg.Version == "" {
		// Version attribute missing; treat as EPUB 2.
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// buildManifestMap indexes manifest entries by ID.
func buildManifestMap(manifest opfManifest) map[string]*manifestItem {
	byID := make(map[string]*manifestItem, len(manifest.Items))
	for _, item := range manifest.Items {
		byID[item.ID] = &manifestItem{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
	}
	return byID
}

// buildSpine resolves spine itemrefs through the manifest into ordered
// SpineItems with ZIP-internal paths. Itemrefs that reference no
// manifest entry are dropped.
func buildSpine(p *Package, spine opfSpine) []SpineItem {
	items := make([]SpineItem, 0, len(spine.ItemRefs))
	for _, ref := range spine.ItemRefs {
		mi, ok := p.manifestByID[ref.IDRef]
		if !ok {
			continue
		}
		items = append(items, SpineItem{
			ID:        mi.ID,
			Href:      p.resolveOPFPath(mi.Href),
			MediaType: mi.MediaType,
			Linear:    ref.Linear != "no",
		})
	}
	return items
}

// extractMetadata maps the raw OPF metadata onto the public Metadata,
// taking the first value for single-valued fields.
func extractMetadata(pkg *opfPackage) Metadata {
	first := func(els []opfDCElement) string {
		for _, el := range els {
			if v := strings.TrimSpace(el.Value); v != "" {
				return v
			}
		}
		return ""
	}
	all := func(els []opfDCElement) []string {
		var out []string
		for _, el := range els {
			if v := strings.TrimSpace(el.Value); v != "" {
				out = append(out, v)
			}
		}
		return out
	}

	return Metadata{
		Title:       first(pkg.Metadata.Titles),
		Authors:     all(pkg.Metadata.Creators),
		Publisher:   first(pkg.Metadata.Publishers),
		Date:        first(pkg.Metadata.Dates),
		Description: first(pkg.Metadata.Descriptions),
		Language:    first(pkg.Metadata.Languages),
		Identifiers: all(pkg.Metadata.Identifiers),
		Subjects:    all(pkg.Metadata.Subjects),
	}
}
