package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

// decodeJSON re-serializes the document with two-space indentation and
// sorted object keys. Numbers keep their original literal form.
func decodeJSON(path string, data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path,
			errors.New("trailing data after JSON value"))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), "utf-8", nil
}
