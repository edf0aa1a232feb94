package epub

import (
	"encoding/xml"
	"strings"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// containerPath is the well-known location of container.xml in an EPUB archive.
const containerPath = "META-INF/container.xml"

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer locates the OPF path. It first tries container.xml; if
// that is missing it falls back to scanning for any ".opf" entry.
func parseContainer(p *Package) (string, error) {
	if f := p.findFile(containerPath); f != nil {
		data, err := readZipFile(f)
		if err != nil {
			return "", errors.Wrap(err, errors.CodeMalformedSource, "read container.xml")
		}

		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
			return "", errors.Wrap(err, errors.CodeMalformedSource, "parse container.xml")
		}

		var fallback string
		for _, rf := range c.RootFiles {
			fullPath := strings.TrimSpace(rf.FullPath)
			if fullPath == "" {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
				return fullPath, nil
			}
			if fallback == "" {
				fallback = fullPath
			}
		}
		if fallback != "" {
			return fallback, nil
		}
		return "", errors.MalformedSource("container.xml has no usable rootfile")
	}

	// No container.xml: take the first .opf entry.
	for _, f := range p.zip.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", errors.MalformedSource("no OPF file found in archive")
}
