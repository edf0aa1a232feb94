package builder

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/epub"
)

// maxNavDepth bounds navigation recursion. Trees deeper than this are
// authoring errors or hostile input; anything below the ceiling is
// silently dropped.
const maxNavDepth = 32

// transcribeNav converts the raw navigation tree into domain entries,
// resolving each target against the spine. Targets that match no
// chapter keep their label with SpineIndex -1.
func transcribeNav(raw []epub.RawNav, byFile map[string]int, depth int) []domain.NavEntry {
	if depth >= maxNavDepth || len(raw) == 0 {
		return nil
	}

	entries := make([]domain.NavEntry, 0, len(raw))
	for _, r := range raw {
		file, anchor := domain.SplitHref(r.Href)

		entry := domain.NavEntry{
			Label:      r.Label,
			Href:       r.Href,
			FileHref:   file,
			Anchor:     anchor,
			SpineIndex: -1,
			Children:   transcribeNav(r.Children, byFile, depth+1),
		}
		if idx, ok := byFile[file]; ok && file != "" {
			entry.SpineIndex = idx
		}
		entries = append(entries, entry)
	}
	return entries
}

// navResolved reports whether any entry in the tree resolved to a
// spine position.
func navResolved(entries []domain.NavEntry) bool {
	for _, e := range entries {
		if e.SpineIndex >= 0 || navResolved(e.Children) {
			return true
		}
	}
	return false
}

// fallbackNav synthesizes a flat navigation tree from the spine for
// packages that declare no usable navigation.
func fallbackNav(chapters []domain.Chapter) []domain.NavEntry {
	entries := make([]domain.NavEntry, 0, len(chapters))
	for i, ch := range chapters {
		entries = append(entries, domain.NavEntry{
			Label:      ch.Title,
			Href:       ch.Href,
			FileHref:   ch.Href,
			SpineIndex: i,
		})
	}
	return entries
}

// titleIndex maps each chapter file to the first navigation label that
// targets it, walking the tree depth-first.
func titleIndex(raw []epub.RawNav) map[string]string {
	titles := make(map[string]string)
	collectTitles(raw, titles, 0)
	return titles
}

func collectTitles(raw []epub.RawNav, titles map[string]string, depth int) {
	if depth >= maxNavDepth {
		return
	}
	for _, r := range raw {
		if r.Href != "" && r.Label != "" {
			file, _ := domain.SplitHref(r.Href)
			if _, seen := titles[file]; !seen {
				titles[file] = r.Label
			}
		}
		collectTitles(r.Children, titles, depth+1)
	}
}

var titleCaser = cases.Title(language.Und)

// humanizeHref derives a display title from a content file path:
// "text/my-first_chapter.xhtml" becomes "My First Chapter".
func humanizeHref(href string) string {
	stem := path.Base(href)
	stem = strings.TrimSuffix(stem, path.Ext(stem))
	stem = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return ""
	}
	return titleCaser.String(stem)
}
