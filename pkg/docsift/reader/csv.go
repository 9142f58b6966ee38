package reader

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

// decodeCSV flattens rows: cells joined by a space, rows by newlines.
// Quoting is lenient: a bare quote inside an unquoted field is kept as
// text, and a quoted field left open at EOF runs to the end of input.
func (r *Reader) decodeCSV(path string, data []byte) (string, string, error) {
	text, enc, ok := r.decodeBytes(data)
	if !ok {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path,
			errors.New("csv is not valid UTF-8 and no fallback encoding applies"))
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var b strings.Builder
	b.Grow(len(text))
	for first := true; ; first = false {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, " "))
	}
	return b.String(), enc, nil
}
