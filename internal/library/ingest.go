package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inkwellapp/inkwell-server/internal/builder"
	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/epub"
	"github.com/inkwellapp/inkwell-server/internal/errors"
	"github.com/inkwellapp/inkwell-server/internal/id"
	"github.com/inkwellapp/inkwell-server/internal/pdfconv"
	"github.com/inkwellapp/inkwell-server/internal/util"
)

// Ingestor converts source files into persisted library documents.
type Ingestor struct {
	store   *Store
	builder *builder.Builder
	pdf     *pdfconv.Converter
	logger  *slog.Logger
}

// NewIngestor creates an Ingestor writing into store.
func NewIngestor(store *Store, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:   store,
		builder: builder.New(logger),
		pdf:     pdfconv.New(logger),
		logger:  logger,
	}
}

// SupportedSource reports whether the file name carries an ingestable
// extension.
func SupportedSource(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".epub", ".pdf":
		return true
	default:
		return false
	}
}

// Ingest converts the source file at srcPath into a new library
// document and returns its id. A failed conversion leaves no partial
// directory behind.
func (g *Ingestor) Ingest(srcPath string) (string, *domain.Document, error) {
	base := filepath.Base(srcPath)
	docID := g.allocateID(base)
	docDir := g.store.DocumentDir(docID)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return "", nil, errors.Wrapf(err, errors.CodeInternal, "create document directory %s", docID)
	}

	doc, err := g.convert(srcPath, docDir, base)
	if err != nil {
		os.RemoveAll(docDir)
		return "", nil, err
	}

	if err := g.store.Save(docID, doc); err != nil {
		os.RemoveAll(docDir)
		return "", nil, err
	}

	g.logger.Info("document ingested",
		"id", docID,
		"source", base,
		"title", doc.Metadata.Title,
		"chapters", len(doc.Spine))
	return docID, doc, nil
}

func (g *Ingestor) convert(srcPath, docDir, sourceName string) (*domain.Document, error) {
	switch strings.ToLower(filepath.Ext(srcPath)) {
	case ".epub":
		pkg, err := epub.Open(srcPath)
		if err != nil {
			return nil, err
		}
		defer pkg.Close()
		return g.builder.Build(pkg, docDir, sourceName)
	case ".pdf":
		return g.pdf.Build(srcPath, sourceName)
	default:
		return nil, errors.Validationf("unsupported source type %q", filepath.Ext(srcPath))
	}
}

// allocateID derives a directory-safe id from the source filename,
// adding a random suffix when the slug is taken.
func (g *Ingestor) allocateID(sourceName string) string {
	stem := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	slug := util.Slugify(stem)
	if slug == "" {
		slug = "document"
	}
	if _, err := os.Stat(g.store.DocumentDir(slug)); os.IsNotExist(err) {
		return slug
	}
	suffix, err := id.Suffix()
	if err != nil {
		suffix = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return slug + "-" + suffix
}
