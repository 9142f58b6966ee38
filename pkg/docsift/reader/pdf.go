package reader

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

// PDFExtractor names a PDF text extraction backend.
type PDFExtractor string

const (
	// PDFNative parses the file in-process.
	PDFNative PDFExtractor = "native"
	// PDFDocconv shells out to poppler's pdftotext.
	PDFDocconv PDFExtractor = "docconv"
)

// pdfFunc returns the text of each page, in order. Pages whose text
// cannot be extracted come back empty.
type pdfFunc func(data []byte, logger *zap.Logger) ([]string, error)

func pdfExtractor(name PDFExtractor) (pdfFunc, error) {
	switch name {
	case "", PDFNative:
		return nativePages, nil
	case PDFDocconv:
		return docconvPages, nil
	}
	return nil, fmt.Errorf("%w: unknown pdf extractor %q", internalerr.ErrInvalidConfig, name)
}

func (r *Reader) decodePDF(path string, data []byte) (string, string, error) {
	pages, err := r.pdf(data, r.logger.With(zap.String("path", path)))
	if err != nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
	}

	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		// Extractors open each text object with a newline.
		p = strings.TrimSpace(strings.ToValidUTF8(p, ""))
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n"), "", nil
}

func nativePages(data []byte, logger *zap.Logger) ([]string, error) {
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := rd.NumPage()
	pages := make([]string, 0, n)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= n; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("skipping pdf page", zap.Int("page", i), zap.Error(err))
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func docconvPages(data []byte, _ *zap.Logger) ([]string, error) {
	body, _, err := docconv.ConvertPDF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(body, "\f"), nil
}
