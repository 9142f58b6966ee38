package reader

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

type textEncoding struct {
	name string
	enc  encoding.Encoding
}

// LookupEncoding resolves an encoding label. IANA names are tried first
// so "iso-8859-1" means Latin-1 rather than its WHATWG alias
// windows-1252; WHATWG labels such as "latin1" or "x-gbk" also work.
func LookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, _ := charset.Lookup(label); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: unknown encoding %q", internalerr.ErrInvalidConfig, label)
}

func lookupEncodings(labels []string) ([]textEncoding, error) {
	out := make([]textEncoding, 0, len(labels))
	for _, label := range labels {
		enc, err := LookupEncoding(label)
		if err != nil {
			return nil, err
		}
		out = append(out, textEncoding{name: strings.ToLower(label), enc: enc})
	}
	return out, nil
}

// decodeBytes returns data as UTF-8 text. UTF-8 (BOM stripped) and
// BOM-marked UTF-16 are recognized directly; otherwise each fallback is
// tried in order and accepted only if it decodes every byte.
func (r *Reader) decodeBytes(data []byte) (string, string, bool) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		data = data[len(utf8BOM):]
	case bytes.HasPrefix(data, utf16LEBOM), bytes.HasPrefix(data, utf16BEBOM):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(data); err == nil && utf8.Valid(out) {
			return string(out), "utf-16", true
		}
	}
	if utf8.Valid(data) {
		return string(data), "utf-8", true
	}

	for _, fb := range r.fallback {
		out, err := fb.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) || !utf8.Valid(out) {
			continue
		}
		return string(out), fb.name, true
	}
	return "", "", false
}

func (r *Reader) decodeText(path string, data []byte) (string, string, error) {
	text, enc, ok := r.decodeBytes(data)
	if !ok {
		return "", "", internalerr.New(internalerr.KindDecodeError, path,
			fmt.Errorf("not UTF-8 and no fallback encoding applies"))
	}
	if enc != "utf-8" {
		r.logger.Sugar().Debugf("decoded %s as %s", path, enc)
	}
	return text, enc, nil
}
