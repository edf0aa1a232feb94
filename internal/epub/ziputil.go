package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// maxDecompressSize caps the decompressed size of a single ZIP entry to
// guard against zip bombs.
const maxDecompressSize int64 = 256 * 1024 * 1024

// ResolveRelative resolves href relative to the directory of basePath.
// Both are ZIP-internal, forward-slash paths. Paths that escape the
// archive root resolve to "".
func ResolveRelative(basePath, href string) string {
	return resolveRelativePath(basePath, href)
}

// resolveRelativePath resolves href relative to the directory of basePath.
// Both are ZIP-internal, forward-slash paths. Paths that escape the
// archive root resolve to "".
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	cleaned := path.Clean(path.Join(path.Dir(basePath), href))
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// isSafePath reports whether p stays within the archive root.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

// stripBOM removes a leading UTF-8 BOM from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads the full contents of a ZIP entry, enforcing
// maxDecompressSize and rejecting traversal entry names.
func readZipFile(f *zip.File) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(maxDecompressSize) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Declared sizes can be forged; read one byte past the limit to detect it.
	data, err := io.ReadAll(io.LimitReader(rc, maxDecompressSize+1))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxDecompressSize {
		return nil, fmt.Errorf("zip entry %s exceeds decompression limit", f.Name)
	}
	return data, nil
}

// entityNameToNumeric maps HTML entity names that commonly appear in OPF
// and NCX files to XML numeric references; encoding/xml only understands
// the XML predefined set.
var entityNameToNumeric = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;", "hellip": "&#8230;",
	"lsquo": "&#8216;", "rsquo": "&#8217;", "ldquo": "&#8220;", "rdquo": "&#8221;",
	"copy": "&#169;", "reg": "&#174;", "trade": "&#8482;", "bull": "&#8226;",
	"eacute": "&#233;", "egrave": "&#232;", "agrave": "&#224;", "auml": "&#228;",
	"ouml": "&#246;", "uuml": "&#252;", "ntilde": "&#241;", "ccedil": "&#231;",
	"deg": "&#176;", "laquo": "&#171;", "raquo": "&#187;",
}

var htmlEntityPattern = regexp.MustCompile(`(?i)&([a-z]{2,8});`)

// preprocessHTMLEntities rewrites known HTML named entities into numeric
// references so encoding/xml can parse the document.
func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return []byte(replacement)
		}
		return match
	})
}
