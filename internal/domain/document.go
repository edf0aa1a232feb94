// Package domain contains the core entities for the Inkwell reading library.
package domain

import "strings"

// FormatVersion identifies the persisted document layout. Bump when the
// on-disk shape changes so stale directories are re-ingested.
const FormatVersion = "1"

// Metadata holds the descriptive fields extracted from a source package.
// All fields are optional; a document with empty metadata is still servable.
type Metadata struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Date          string   `json:"date,omitempty"`
	Description   string   `json:"description,omitempty"`
	Language      string   `json:"language,omitempty"`
	Identifiers   []string `json:"identifiers,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	CoverImage    string   `json:"cover_image,omitempty"`    // local asset id under images/
	CoverBlurhash string   `json:"cover_blurhash,omitempty"` // compact placeholder for library views
}

// Chapter is one physical content file from the source package, sanitized
// and ready to render. Order always equals the chapter's index in the
// owning spine; the spine is never sparse or reordered after assembly.
type Chapter struct {
	Order  int    `json:"order"`
	Title  string `json:"title"`
	Href   string `json:"href"`   // original in-package path, join key for navigation
	Linear bool   `json:"linear"` // false marks auxiliary content outside the primary reading order
	HTML   string `json:"html"`
	Text   string `json:"text"` // whitespace-collapsed plain projection, used for search
}

// NavEntry is one node of the navigation tree. Navigation is advisory:
// an entry whose target does not resolve to a spine chapter keeps its
// label but carries SpineIndex == -1, making it a pure grouping node.
type NavEntry struct {
	Label      string     `json:"label"`
	Href       string     `json:"href,omitempty"`      // original target, may include a fragment
	FileHref   string     `json:"file_href,omitempty"` // Href with the fragment stripped
	Anchor     string     `json:"anchor,omitempty"`
	SpineIndex int        `json:"spine_index"` // -1 when unresolved
	Children   []NavEntry `json:"children,omitempty"`
}

// IsGroup reports whether the entry is a label-only grouping node.
func (e *NavEntry) IsGroup() bool {
	return e.SpineIndex < 0
}

// SplitHref separates an href into its file part and fragment anchor.
func SplitHref(href string) (file, anchor string) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i], href[i+1:]
	}
	return href, ""
}

// Document is the fully assembled reading model. It is immutable once
// built: the spine is the authoritative linear reading order, the nav
// tree is secondary, and Assets maps every original asset reference
// (full path and bare basename) to its local identifier under images/.
type Document struct {
	Metadata    Metadata          `json:"metadata"`
	Spine       []Chapter         `json:"spine"`
	Nav         []NavEntry        `json:"nav"`
	Assets      map[string]string `json:"assets,omitempty"`
	SourceFile  string            `json:"source_file,omitempty"`
	ProcessedAt string            `json:"processed_at,omitempty"`
	Version     string            `json:"version"`
}

// ChapterAt returns the chapter at the given spine position, or nil when
// the position is outside [0, len(spine)).
func (d *Document) ChapterAt(pos int) *Chapter {
	if pos < 0 || pos >= len(d.Spine) {
		return nil
	}
	return &d.Spine[pos]
}

// ResolveAsset looks up a local asset identifier by original reference,
// trying the reference as given and then its basename.
func (d *Document) ResolveAsset(ref string) (string, bool) {
	if id, ok := d.Assets[ref]; ok {
		return id, true
	}
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		if id, ok := d.Assets[ref[i+1:]]; ok {
			return id, true
		}
	}
	return "", false
}

// LibraryEntry is a lightweight listing of one persisted document. The
// full Document is only materialized on a cache load.
type LibraryEntry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Chapters int      `json:"chapters"`
}
