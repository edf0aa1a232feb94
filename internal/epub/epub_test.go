package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// buildArchive assembles an in-memory ZIP from name/content pairs.
func buildArchive(t *testing.T, files map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Voyage au Centre de la Terre</dc:title>
    <dc:creator>Jules Verne</dc:creator>
    <dc:language>fr</dc:language>
    <dc:identifier id="id">urn:isbn:9780000000001</dc:identifier>
    <dc:publisher>Hetzel</dc:publisher>
    <dc:date>1864</dc:date>
    <dc:subject>Adventure</dc:subject>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
    <item id="map" href="images/map.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2" linear="no"/>
    <itemref idref="missing"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1">
      <navLabel><text>Part One</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="p1a">
        <navLabel><text>The Letter</text></navLabel>
        <content src="text/ch1.xhtml#letter"/>
      </navPoint>
    </navPoint>
    <navPoint id="p2">
      <navLabel><text>Part Two</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func testFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/text/ch1.xhtml":   "<html><body><p>Chapter one.</p></body></html>",
		"OEBPS/text/ch2.xhtml":   "<html><body><p>Chapter two.</p></body></html>",
		"OEBPS/images/cover.jpg": "jpegdata",
		"OEBPS/images/map.png":   "pngdata",
	}
}

func openTestPackage(t *testing.T, files map[string]string) *Package {
	t.Helper()
	r := buildArchive(t, files)
	p, err := NewReader(r, r.Size())
	require.NoError(t, err)
	return p
}

func TestPackageMetadata(t *testing.T) {
	p := openTestPackage(t, testFiles())

	meta := p.Metadata()
	assert.Equal(t, "Voyage au Centre de la Terre", meta.Title)
	assert.Equal(t, []string{"Jules Verne"}, meta.Authors)
	assert.Equal(t, "fr", meta.Language)
	assert.Equal(t, "Hetzel", meta.Publisher)
	assert.Equal(t, "1864", meta.Date)
	assert.Equal(t, []string{"urn:isbn:9780000000001"}, meta.Identifiers)
	assert.Equal(t, []string{"Adventure"}, meta.Subjects)
}

func TestPackageSpine(t *testing.T) {
	p := openTestPackage(t, testFiles())

	spine := p.Spine()
	require.Len(t, spine, 2, "unresolvable itemref should be dropped")
	assert.Equal(t, "OEBPS/text/ch1.xhtml", spine[0].Href)
	assert.True(t, spine[0].Linear)
	assert.Equal(t, "OEBPS/text/ch2.xhtml", spine[1].Href)
	assert.False(t, spine[1].Linear)
}

func TestPackageNavFromNCX(t *testing.T) {
	p := openTestPackage(t, testFiles())

	nav := p.Nav()
	require.Len(t, nav, 2)

	assert.Equal(t, NavSection, nav[0].Kind)
	assert.Equal(t, "Part One", nav[0].Label)
	assert.Equal(t, "OEBPS/text/ch1.xhtml", nav[0].Href)
	require.Len(t, nav[0].Children, 1)
	assert.Equal(t, NavLeaf, nav[0].Children[0].Kind)
	assert.Equal(t, "OEBPS/text/ch1.xhtml#letter", nav[0].Children[0].Href)

	assert.Equal(t, NavLeaf, nav[1].Kind)
	assert.Equal(t, "Part Two", nav[1].Label)
}

func TestPackageNavDocument(t *testing.T) {
	files := testFiles()
	files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Nav Test</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`
	files["OEBPS/nav.xhtml"] = `<html xmlns:epub="http://www.idpf.org/2007/ops"><body>
<nav epub:type="toc">
  <ol>
    <li><span>Front Matter</span>
      <ol>
        <li><a href="text/ch1.xhtml">Opening</a></li>
      </ol>
    </li>
    <li><a href="text/ch1.xhtml#end">Closing</a></li>
  </ol>
</nav>
</body></html>`

	p := openTestPackage(t, files)

	nav := p.Nav()
	require.Len(t, nav, 2)

	assert.Equal(t, NavGroup, nav[0].Kind)
	assert.Equal(t, "Front Matter", nav[0].Label)
	assert.Empty(t, nav[0].Href)
	require.Len(t, nav[0].Children, 1)
	assert.Equal(t, "Opening", nav[0].Children[0].Label)
	assert.Equal(t, "OEBPS/text/ch1.xhtml", nav[0].Children[0].Href)

	assert.Equal(t, NavLeaf, nav[1].Kind)
	assert.Equal(t, "OEBPS/text/ch1.xhtml#end", nav[1].Href)
}

func TestPackageImages(t *testing.T) {
	p := openTestPackage(t, testFiles())

	images := p.Images()
	require.Len(t, images, 2)
	assert.Equal(t, "OEBPS/images/cover.jpg", images[0].Path)
	assert.Equal(t, "image/jpeg", images[0].MediaType)
	assert.Equal(t, "OEBPS/images/map.png", images[1].Path)
}

func TestPackageCover(t *testing.T) {
	t.Run("meta pointer", func(t *testing.T) {
		p := openTestPackage(t, testFiles())
		cover := p.Cover()
		require.NotNil(t, cover)
		assert.Equal(t, "OEBPS/images/cover.jpg", cover.Path)
	})

	t.Run("cover-image property wins", func(t *testing.T) {
		files := testFiles()
		files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>T</dc:title>
    <meta name="cover" content="map"/>
  </metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="map" href="images/map.png" media-type="image/png"/>
    <item id="real" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
		p := openTestPackage(t, files)
		cover := p.Cover()
		require.NotNil(t, cover)
		assert.Equal(t, "OEBPS/images/cover.jpg", cover.Path)
	})

	t.Run("id heuristic", func(t *testing.T) {
		files := testFiles()
		files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>T</dc:title></metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-page" href="images/cover.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
		p := openTestPackage(t, files)
		cover := p.Cover()
		require.NotNil(t, cover)
		assert.Equal(t, "OEBPS/images/cover.jpg", cover.Path)
	})
}

func TestPackageReadFile(t *testing.T) {
	p := openTestPackage(t, testFiles())

	data, err := p.ReadFile("OEBPS/text/ch1.xhtml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Chapter one.")

	// Case-insensitive fallback.
	data, err = p.ReadFile("oebps/TEXT/CH1.xhtml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Chapter one.")

	_, err = p.ReadFile("OEBPS/text/ch9.xhtml")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestContainerFallbackToOPFScan(t *testing.T) {
	files := testFiles()
	delete(files, "META-INF/container.xml")

	p := openTestPackage(t, files)
	assert.Equal(t, "Voyage au Centre de la Terre", p.Metadata().Title)
}

func TestMissingOPFIsMalformed(t *testing.T) {
	r := buildArchive(t, map[string]string{"mimetype": "application/epub+zip"})
	_, err := NewReader(r, r.Size())
	assert.True(t, errors.Is(err, errors.ErrMalformedSource))
}

func TestDRMRejection(t *testing.T) {
	t.Run("fairplay marker", func(t *testing.T) {
		files := testFiles()
		files["META-INF/sinf.xml"] = "<sinf/>"
		r := buildArchive(t, files)
		_, err := NewReader(r, r.Size())
		assert.True(t, errors.Is(err, errors.ErrMalformedSource))
	})

	t.Run("encrypted content", func(t *testing.T) {
		files := testFiles()
		files["META-INF/encryption.xml"] = `<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <EncryptedData xmlns="http://www.w3.org/2001/04/xmlenc#">
    <EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes128-cbc"/>
  </EncryptedData>
</encryption>`
		r := buildArchive(t, files)
		_, err := NewReader(r, r.Size())
		assert.True(t, errors.Is(err, errors.ErrMalformedSource))
	})

	t.Run("font obfuscation tolerated", func(t *testing.T) {
		files := testFiles()
		files["META-INF/encryption.xml"] = `<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <EncryptedData xmlns="http://www.w3.org/2001/04/xmlenc#">
    <EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding"/>
  </EncryptedData>
</encryption>`
		r := buildArchive(t, files)
		_, err := NewReader(r, r.Size())
		assert.NoError(t, err)
	})
}

func TestResolveRelativePath(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		href     string
		expected string
	}{
		{"sibling", "OEBPS/content.opf", "text/ch1.xhtml", "OEBPS/text/ch1.xhtml"},
		{"parent", "OEBPS/text/ch1.xhtml", "../images/map.png", "OEBPS/images/map.png"},
		{"url escaped", "OEBPS/content.opf", "text/my%20chapter.xhtml", "OEBPS/text/my chapter.xhtml"},
		{"escape attempt", "OEBPS/content.opf", "../../etc/passwd", ""},
		{"absolute", "OEBPS/content.opf", "/etc/passwd", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveRelativePath(tt.base, tt.href))
		})
	}
}

func TestPreprocessHTMLEntities(t *testing.T) {
	in := []byte("<dc:title>War &nbsp; Peace &mdash; Vol&nbsp;1 &amp; more</dc:title>")
	out := string(preprocessHTMLEntities(in))
	assert.Contains(t, out, "&#160;")
	assert.Contains(t, out, "&#8212;")
	assert.Contains(t, out, "&amp;", "XML predefined entities must survive")
	assert.NotContains(t, out, "&nbsp;")
}
