// Package reader validates input files and decodes them to plain text.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

// DefaultMaxFileSize is 100 MiB.
const DefaultMaxFileSize int64 = 100 << 20

// DefaultFallbackEncodings are tried in order when text is not UTF-8.
var DefaultFallbackEncodings = []string{"gbk", "iso-8859-1", "windows-1252"}

// Options configures a Reader.
type Options struct {
	MaxFileSize       int64
	FallbackEncodings []string
	// PDF selects the PDF text extractor. Defaults to PDFNative.
	PDF    PDFExtractor
	Logger *zap.Logger
}

// Reader turns files into Documents. It is stateless and safe for
// concurrent use.
type Reader struct {
	maxSize  int64
	fallback []textEncoding
	pdf      pdfFunc
	readFile func(string) ([]byte, error)
	logger   *zap.Logger
}

type decodeFunc func(path string, data []byte) (text, encoding string, err error)

// New creates a Reader.
func New(opts Options) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	labels := opts.FallbackEncodings
	if labels == nil {
		labels = DefaultFallbackEncodings
	}
	fallback, err := lookupEncodings(labels)
	if err != nil {
		return nil, err
	}
	pdf, err := pdfExtractor(opts.PDF)
	if err != nil {
		return nil, err
	}
	return &Reader{
		maxSize:  opts.MaxFileSize,
		fallback: fallback,
		pdf:      pdf,
		readFile: os.ReadFile,
		logger:   logger,
	}, nil
}

// Check validates path without decoding it: it must exist, be a regular
// file no larger than the size limit, and have a supported extension.
func (r *Reader) Check(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		// Permission and other stat failures are reported as NotFound too.
		return "", internalerr.New(internalerr.KindNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", internalerr.New(internalerr.KindNotAFile, path, nil)
	}
	if info.Size() > r.maxSize {
		return "", internalerr.New(internalerr.KindTooLarge, path,
			fmt.Errorf("%d bytes exceeds limit of %d", info.Size(), r.maxSize))
	}
	format, ok := FormatForExt(filepath.Ext(path))
	if !ok {
		return "", internalerr.New(internalerr.KindUnsupportedFormat, path,
			fmt.Errorf("extension %q", filepath.Ext(path)))
	}
	return format, nil
}

// Read validates and decodes path. Errors are *internalerr.Error.
func (r *Reader) Read(ctx context.Context, path string) (*Document, error) {
	format, err := r.Check(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, internalerr.New(internalerr.KindCanceled, path, err)
	}

	data, err := r.readFile(path)
	if err != nil {
		// The file passed Check, so only a removal since then is NotFound.
		kind := internalerr.KindDecodeError
		if errors.Is(err, fs.ErrNotExist) {
			kind = internalerr.KindNotFound
		}
		return nil, internalerr.New(kind, path, err)
	}

	text, encoding, err := r.decode(format, path, data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Path:     path,
		Format:   format,
		Text:     text,
		Size:     int64(len(data)),
		Encoding: encoding,
	}
	if err := doc.Validate(); err != nil {
		return nil, internalerr.New(internalerr.KindMalformedContent, path, err)
	}
	r.logger.Debug("document read",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int64("size", doc.Size),
		zap.String("encoding", encoding))
	return doc, nil
}

func (r *Reader) decoder(format Format) decodeFunc {
	switch format {
	case FormatText:
		return r.decodeText
	case FormatCSV:
		return r.decodeCSV
	case FormatJSON:
		return decodeJSON
	case FormatPDF:
		return r.decodePDF
	case FormatXLSX:
		return decodeXLSX
	case FormatXLS:
		return decodeXLS
	}
	return nil
}

// decode runs the format decoder, converting panics from third-party
// parsers into MalformedContent.
func (r *Reader) decode(format Format, path string, data []byte) (text, encoding string, err error) {
	fn := r.decoder(format)
	if fn == nil {
		return "", "", internalerr.New(internalerr.KindUnsupportedFormat, path, nil)
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("decoder panicked", zap.String("path", path), zap.Any("panic", p))
			text, encoding = "", ""
			err = internalerr.New(internalerr.KindMalformedContent, path, fmt.Errorf("panic: %v", p))
		}
	}()
	return fn(path, data)
}
