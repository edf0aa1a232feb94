package epub

import "strings"

// Cover locates the package's cover image, or returns nil when none can
// be identified. Detection order: the EPUB 3 "cover-image" manifest
// property, the EPUB 2 <meta name="cover"> pointer, then a manifest ID
// heuristic.
func (p *Package) Cover() *ImageItem {
	if item := p.coverByProperty(); item != nil {
		return item
	}
	if item := p.coverByMeta(); item != nil {
		return item
	}
	return p.coverByID()
}

func (p *Package) coverByProperty() *ImageItem {
	for _, raw := range p.opf.Manifest.Items {
		for _, prop := range strings.Fields(raw.Properties) {
			if prop == "cover-image" {
				return p.imageItem(raw.Href, raw.MediaType)
			}
		}
	}
	return nil
}

func (p *Package) coverByMeta() *ImageItem {
	for _, meta := range p.opf.Metadata.Metas {
		if !strings.EqualFold(strings.TrimSpace(meta.Name), "cover") {
			continue
		}
		id := strings.TrimSpace(meta.Content)
		if id == "" {
			continue
		}
		if mi, ok := p.manifestByID[id]; ok && strings.HasPrefix(mi.MediaType, "image/") {
			return p.imageItem(mi.Href, mi.MediaType)
		}
	}
	return nil
}

func (p *Package) coverByID() *ImageItem {
	for _, raw := range p.opf.Manifest.Items {
		if !strings.HasPrefix(raw.MediaType, "image/") {
			continue
		}
		if strings.Contains(strings.ToLower(raw.ID), "cover") {
			return p.imageItem(raw.Href, raw.MediaType)
		}
	}
	return nil
}

func (p *Package) imageItem(href, mediaType string) *ImageItem {
	resolved := p.resolveOPFPath(href)
	if resolved == "" {
		return nil
	}
	return &ImageItem{Path: resolved, MediaType: mediaType}
}
