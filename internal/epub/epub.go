// Package epub reads EPUB source packages: container, OPF manifest and
// spine, metadata, raw navigation data, and embedded assets. It exposes
// the package exactly as declared; interpretation (sanitizing, nav
// reconciliation) happens in the builder.
package epub

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// SpineItem is one physical content file in declared reading order.
// Href is the ZIP-internal path, already resolved against the OPF directory.
type SpineItem struct {
	ID        string
	Href      string
	MediaType string
	Linear    bool
}

// ImageItem is one embedded binary image asset.
type ImageItem struct {
	Path      string // ZIP-internal path
	MediaType string
}

// Metadata holds the Dublin Core fields extracted from the OPF.
type Metadata struct {
	Title       string
	Authors     []string
	Publisher   string
	Date        string
	Description string
	Language    string
	Identifiers []string
	Subjects    []string
}

// Package is an opened EPUB archive.
//
// A Package is not safe for concurrent use by multiple goroutines.
type Package struct {
	zip          *zip.Reader
	closer       io.Closer
	zipExact     map[string]*zip.File
	zipLower     map[string]*zip.File
	opfPath      string
	opfDir       string
	opf          *opfPackage
	manifestByID map[string]*manifestItem
	spine        []SpineItem
	meta         Metadata
	nav          []RawNav
}

// Open opens an EPUB file at the given path.
// The caller must call Close when done.
func Open(filePath string) (*Package, error) {
	zrc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeMalformedSource, "open %s", filePath)
	}

	p, err := initPackage(&zrc.Reader, zrc)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return p, nil
}

// NewReader creates a Package from an io.ReaderAt with the given size.
// The caller owns the lifetime of r.
func NewReader(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedSource, "open zip archive")
	}
	return initPackage(zr, nil)
}

// initPackage performs common initialisation: DRM detection, container
// parsing, OPF parsing, and navigation extraction.
func initPackage(zr *zip.Reader, closer io.Closer) (*Package, error) {
	p := &Package{zip: zr, closer: closer}
	p.buildZipIndex()

	if err := checkDRM(p); err != nil {
		return nil, err
	}

	opfPath, err := parseContainer(p)
	if err != nil {
		return nil, err
	}
	p.opfPath = opfPath
	p.opfDir = path.Dir(opfPath)

	opfFile := p.findFile(opfPath)
	if opfFile == nil {
		return nil, errors.MalformedSourcef("OPF file %s not found in archive", opfPath)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedSource, "read OPF file")
	}

	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}
	p.opf = pkg
	p.manifestByID = buildManifestMap(pkg.Manifest)
	p.spine = buildSpine(p, pkg.Spine)
	p.meta = extractMetadata(pkg)

	// Navigation is advisory; failures leave p.nav empty and the builder
	// synthesizes a fallback from the spine.
	p.nav = parseNav(p)

	return p, nil
}

// buildZipIndex builds exact and lowercase lookup maps over the archive entries.
func (p *Package) buildZipIndex() {
	p.zipExact = make(map[string]*zip.File, len(p.zip.File))
	p.zipLower = make(map[string]*zip.File, len(p.zip.File))
	for _, f := range p.zip.File {
		p.zipExact[f.Name] = f
		lower := strings.ToLower(f.Name)
		if _, ok := p.zipLower[lower]; !ok {
			p.zipLower[lower] = f
		}
	}
}

// findFile looks up a ZIP entry by path, trying an exact match first and
// then a case-insensitive one. Returns nil if not found.
func (p *Package) findFile(name string) *zip.File {
	if f, ok := p.zipExact[name]; ok {
		return f
	}
	if f, ok := p.zipLower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// resolveOPFPath resolves an href from the OPF against the OPF directory,
// yielding a ZIP-internal path.
func (p *Package) resolveOPFPath(href string) string {
	return resolveRelativePath(p.opfPath, href)
}

// Metadata returns the Dublin Core metadata.
func (p *Package) Metadata() Metadata { return p.meta }

// Spine returns the declared linear reading order.
func (p *Package) Spine() []SpineItem { return p.spine }

// Nav returns the raw navigation tree, or an empty slice when the
// package declares none.
func (p *Package) Nav() []RawNav { return p.nav }

// Images returns every manifest item with an image media type, in
// manifest order.
func (p *Package) Images() []ImageItem {
	var items []ImageItem
	for _, raw := range p.opf.Manifest.Items {
		if strings.HasPrefix(raw.MediaType, "image/") {
			items = append(items, ImageItem{
				Path:      p.resolveOPFPath(raw.Href),
				MediaType: raw.MediaType,
			})
		}
	}
	return items
}

// ReadFile reads the full contents of a ZIP-internal path.
func (p *Package) ReadFile(zipPath string) ([]byte, error) {
	f := p.findFile(zipPath)
	if f == nil {
		return nil, errors.NotFoundf("file %s not in archive", zipPath)
	}
	return readZipFile(f)
}

// Close releases the underlying archive when the Package was created via Open.
func (p *Package) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
