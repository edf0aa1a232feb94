// Package assets extracts embedded images from a source package into a
// document directory and rewrites content references to point at the
// extracted copies. Assets the content references but the package does
// not contain are left untouched; a missing picture never fails a build.
package assets

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/inkwellapp/inkwell-server/internal/epub"
	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// ImagesDir is the subdirectory of a document directory that holds
// extracted images.
const ImagesDir = "images"

// Extractor copies a package's images into <dir>/images and records how
// source references map onto the stored files.
type Extractor struct {
	dir    string
	logger *slog.Logger

	// refs maps both the full ZIP-internal path and the bare basename of
	// each extracted image to its stored path relative to dir. Basename
	// keys exist because content files routinely reference images through
	// paths the manifest never declared.
	refs map[string]string
	used map[string]bool
}

// NewExtractor creates an Extractor targeting the given document directory.
func NewExtractor(dir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		dir:    dir,
		logger: logger,
		refs:   make(map[string]string),
		used:   make(map[string]bool),
	}
}

// Refs returns the reference map built by ExtractImages.
func (e *Extractor) Refs() map[string]string { return e.refs }

// ExtractImages writes every image the package declares into the images
// subdirectory. Individual unreadable images are logged and skipped;
// only filesystem failures abort.
func (e *Extractor) ExtractImages(pkg *epub.Package) error {
	images := pkg.Images()
	if len(images) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Join(e.dir, ImagesDir), 0o755); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create images directory")
	}

	for _, item := range images {
		// Manifests can declare the same file under several ids; one
		// source path extracts once.
		if _, done := e.refs[item.Path]; done {
			continue
		}
		data, err := pkg.ReadFile(item.Path)
		if err != nil {
			e.logger.Warn("skipping unreadable image", "path", item.Path, "error", err)
			continue
		}

		name := e.claimName(SanitizeName(path.Base(item.Path)))
		stored := path.Join(ImagesDir, name)
		if err := os.WriteFile(filepath.Join(e.dir, ImagesDir, name), data, 0o644); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "write image %s", name)
		}

		if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			e.logger.Debug("image extracted",
				"name", name, "format", format,
				"width", cfg.Width, "height", cfg.Height)
		}

		e.refs[item.Path] = stored
		e.refs[path.Base(item.Path)] = stored
	}
	return nil
}

// claimName reserves a stored filename, suffixing a counter when two
// distinct source paths sanitize to the same basename.
func (e *Extractor) claimName(name string) string {
	if !e.used[name] {
		e.used[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !e.used[candidate] {
			e.used[candidate] = true
			return candidate
		}
	}
}

// SanitizeName reduces an asset reference to a safe flat filename:
// directory components and traversal sequences are removed, and
// characters outside a conservative set are replaced.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	cleaned := strings.Trim(sb.String(), ".")
	if cleaned == "" {
		return "asset"
	}
	return cleaned
}

// Blurhash computes a compact placeholder hash for an encoded image.
func Blurhash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return blurhash.Encode(4, 3, img)
}
