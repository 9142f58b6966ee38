package reader

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Format identifies an input file type by extension.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var extensions = map[string]Format{
	".txt":  FormatText,
	".csv":  FormatCSV,
	".json": FormatJSON,
	".pdf":  FormatPDF,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
}

// FormatForExt maps a file extension (with dot, any case) to a Format.
func FormatForExt(ext string) (Format, bool) {
	f, ok := extensions[strings.ToLower(ext)]
	return f, ok
}

// Extensions lists the supported extensions.
func Extensions() []string {
	return []string{".txt", ".csv", ".json", ".pdf", ".xlsx", ".xls"}
}

// Document is the decoded text of one input file.
type Document struct {
	Path   string
	Format Format
	Text   string
	Size   int64
	// Encoding is the character encoding the text was decoded from,
	// for formats that are decoded from raw bytes.
	Encoding string
}

// Validate checks the document is usable by the analysis pipeline.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Path) == "" {
		return errors.New("document path is required")
	}
	if d.Format == "" {
		return errors.New("document format is required")
	}
	if !utf8.ValidString(d.Text) {
		return errors.New("document text is not valid UTF-8")
	}
	return nil
}
