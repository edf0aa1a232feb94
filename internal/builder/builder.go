// Package builder assembles the normalized reading model from an opened
// source package: sanitized spine chapters in dense order, a reconciled
// navigation tree, extracted assets, and descriptive metadata.
//
// An empty spine is the only fatal condition after the package opens.
// Everything else degrades locally: unreadable chapters keep their slot
// with empty content, unresolvable navigation targets become grouping
// nodes, and a missing cover simply leaves the cover fields blank.
package builder

import (
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/inkwellapp/inkwell-server/internal/assets"
	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/epub"
	"github.com/inkwellapp/inkwell-server/internal/errors"
	"github.com/inkwellapp/inkwell-server/internal/sanitize"
)

// Builder turns source packages into persisted reading documents.
type Builder struct {
	logger *slog.Logger
}

// New creates a Builder.
func New(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build assembles a Document from pkg, extracting assets into docDir.
// sourceName is recorded verbatim as the document's origin.
func (b *Builder) Build(pkg *epub.Package, docDir, sourceName string) (*domain.Document, error) {
	spine := pkg.Spine()
	if len(spine) == 0 {
		return nil, errors.EmptySpine("package declares no readable content files")
	}

	extractor := assets.NewExtractor(docDir, b.logger)
	if err := extractor.ExtractImages(pkg); err != nil {
		return nil, err
	}
	refs := extractor.Refs()

	titles := titleIndex(pkg.Nav())
	chapters := b.buildChapters(pkg, spine, titles, refs)

	byFile := make(map[string]int, len(chapters))
	for i, ch := range chapters {
		byFile[ch.Href] = i
	}

	nav := transcribeNav(pkg.Nav(), byFile, 0)
	if !navResolved(nav) {
		// A tree where nothing points at the spine is as useless as no
		// tree at all.
		nav = fallbackNav(chapters)
	}

	meta := buildMetadata(pkg, refs)

	return &domain.Document{
		Metadata:    meta,
		Spine:       chapters,
		Nav:         nav,
		Assets:      refs,
		SourceFile:  sourceName,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		Version:     domain.FormatVersion,
	}, nil
}

// buildChapters sanitizes every spine item in declared order. Order is
// dense: a chapter that fails to read keeps its position with empty
// content rather than shifting its successors.
func (b *Builder) buildChapters(pkg *epub.Package, spine []epub.SpineItem, titles map[string]string, refs map[string]string) []domain.Chapter {
	chapters := make([]domain.Chapter, 0, len(spine))
	for i, item := range spine {
		ch := domain.Chapter{
			Order:  i,
			Href:   item.Href,
			Title:  chapterTitle(titles, item.Href, i),
			Linear: item.Linear,
		}

		raw, err := pkg.ReadFile(item.Href)
		if err != nil {
			b.logger.Warn("chapter content unreadable", "href", item.Href, "error", err)
			chapters = append(chapters, ch)
			continue
		}

		res := sanitize.Fragment(raw)
		ch.HTML = assets.RewriteHTML(res.HTML, item.Href, refs)
		ch.Text = res.Text
		chapters = append(chapters, ch)
	}
	return chapters
}

// chapterTitle prefers the navigation label for the chapter's file,
// then a humanized filename, then a positional fallback.
func chapterTitle(titles map[string]string, href string, pos int) string {
	if t, ok := titles[href]; ok {
		return t
	}
	if t := humanizeHref(href); t != "" {
		return t
	}
	return "Section " + strconv.Itoa(pos+1)
}

func buildMetadata(pkg *epub.Package, refs map[string]string) domain.Metadata {
	src := pkg.Metadata()
	meta := domain.Metadata{
		Title:       src.Title,
		Authors:     src.Authors,
		Publisher:   src.Publisher,
		Date:        src.Date,
		Description: descriptionMarkdown(src.Description),
		Language:    src.Language,
		Identifiers: src.Identifiers,
		Subjects:    src.Subjects,
	}

	cover := pkg.Cover()
	if cover == nil {
		return meta
	}
	stored, ok := refs[cover.Path]
	if !ok {
		return meta
	}
	meta.CoverImage = path.Base(stored)

	if data, err := pkg.ReadFile(cover.Path); err == nil {
		if hash, err := assets.Blurhash(data); err == nil {
			meta.CoverBlurhash = hash
		}
	}
	return meta
}

// htmlTagPattern detects markup in description fields, which publishers
// ship as either plain text or HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// descriptionMarkdown converts an HTML description to Markdown, leaving
// plain text untouched.
func descriptionMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return strings.TrimSpace(s)
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(markdown)
}
