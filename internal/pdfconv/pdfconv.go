// Package pdfconv converts PDF sources into the normalized reading
// model. PDFs have no markup structure to preserve, so each page
// becomes one chapter of escaped paragraph text and the navigation
// tree is a flat page list.
package pdfconv

import (
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/reader"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
	"github.com/inkwellapp/inkwell-server/internal/sanitize"
)

// Converter builds reading documents from PDF files.
type Converter struct {
	logger *slog.Logger
}

// New creates a Converter.
func New(logger *slog.Logger) *Converter {
	return &Converter{logger: logger}
}

// Build converts the PDF at path into a Document. sourceName is
// recorded verbatim as the document's origin.
func (c *Converter) Build(path, sourceName string) (*domain.Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeMalformedSource, "open %s", path)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedSource, "read page count")
	}
	if count == 0 {
		return nil, errors.EmptySpine("PDF has no pages")
	}

	chapters := make([]domain.Chapter, 0, count)
	for n := 1; n <= count; n++ {
		ch := domain.Chapter{
			Order:  n - 1,
			Title:  fmt.Sprintf("Page %d", n),
			Href:   fmt.Sprintf("page/%d", n),
			Linear: true,
		}

		text, warnings, err := tabula.FromReader(r).Pages(n).JoinParagraphs().Text()
		if err != nil {
			c.logger.Warn("page extraction failed", "page", n, "error", err)
			chapters = append(chapters, ch)
			continue
		}
		if len(warnings) > 0 {
			c.logger.Debug("page extraction warnings", "page", n, "detail", tabula.FormatWarnings(warnings))
		}

		ch.HTML = paragraphHTML(text)
		ch.Text = sanitize.CollapseWhitespace(text)
		chapters = append(chapters, ch)
	}

	nav := make([]domain.NavEntry, 0, len(chapters))
	for i, ch := range chapters {
		nav = append(nav, domain.NavEntry{
			Label:      ch.Title,
			Href:       ch.Href,
			FileHref:   ch.Href,
			SpineIndex: i,
		})
	}

	return &domain.Document{
		Metadata:    buildMetadata(r, path),
		Spine:       chapters,
		Nav:         nav,
		SourceFile:  sourceName,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		Version:     domain.FormatVersion,
	}, nil
}

// paragraphHTML wraps extracted paragraphs in <p> elements, escaping
// the text. Blank-line runs delimit paragraphs.
func paragraphHTML(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(sanitize.CollapseWhitespace(para)))
		sb.WriteString("</p>\n")
	}
	return strings.TrimSpace(sb.String())
}

// buildMetadata reads the PDF info dictionary, falling back to the
// filename for the title.
func buildMetadata(r *reader.Reader, path string) domain.Metadata {
	meta := domain.Metadata{}

	if info, err := r.GetInfo(); err == nil && info != nil {
		meta.Title = dictString(info, "Title")
		if author := dictString(info, "Author"); author != "" {
			meta.Authors = []string{author}
		}
		meta.Description = dictString(info, "Subject")
	}

	if meta.Title == "" {
		base := filepath.Base(path)
		meta.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return meta
}

func dictString(d core.Dict, key string) string {
	if s, ok := d.Get(key).(core.String); ok {
		return strings.TrimSpace(string(s))
	}
	return ""
}
