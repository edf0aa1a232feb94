package epub

import (
	"encoding/xml"
	"strings"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// Well-known obfuscation algorithms that only scramble embedded fonts.
// Their presence in encryption.xml does not mean the content is locked.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

type encryptionXML struct {
	XMLName xml.Name        `xml:"encryption"`
	Entries []encryptedData `xml:"EncryptedData"`
}

type encryptedData struct {
	Method encryptionMethod `xml:"EncryptionMethod"`
}

type encryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

// checkDRM rejects packages protected by digital rights management.
// Apple FairPlay leaves a sinf.xml marker; other schemes declare their
// ciphers in encryption.xml. Font obfuscation alone is tolerated.
func checkDRM(p *Package) error {
	if p.findFile("META-INF/sinf.xml") != nil {
		return errors.MalformedSource("package is protected by FairPlay DRM")
	}

	f := p.findFile("META-INF/encryption.xml")
	if f == nil {
		return nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return errors.Wrap(err, errors.CodeMalformedSource, "read encryption.xml")
	}

	var enc encryptionXML
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		// An unparseable encryption.xml is treated as absent.
		return nil
	}
	for _, entry := range enc.Entries {
		alg := strings.TrimSpace(entry.Method.Algorithm)
		if alg != "" && !fontObfuscationAlgorithms[alg] {
			return errors.MalformedSourcef("package content is encrypted (%s)", alg)
		}
	}
	return nil
}
