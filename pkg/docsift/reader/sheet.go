package reader

import (
	"bytes"
	"errors"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/cognicore/docsift/pkg/docsift/internalerr"
)

type sheet struct {
	name string
	rows [][]string
}

// renderSheets emits one block per sheet with content: a "Sheet: <name>"
// header then one line per non-empty row. Blocks are separated by a
// blank line.
func renderSheets(sheets []sheet) string {
	blocks := make([]string, 0, len(sheets))
	for _, s := range sheets {
		lines := []string{"Sheet: " + s.name}
		for _, row := range s.rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " "))
			}
		}
		if len(lines) > 1 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func decodeXLSX(path string, data []byte) (string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return renderSheets(sheets), "", nil
}

func decodeXLS(path string, data []byte) (string, string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, err)
	}
	if wb == nil {
		return "", "", internalerr.New(internalerr.KindMalformedContent, path, errors.New("no workbook stream"))
	}

	sheets := make([]sheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		s := sheet{name: ws.Name}
		for j := 0; j <= int(ws.MaxRow); j++ {
			row := xlsRow(ws, j)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol()-row.FirstCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			s.rows = append(s.rows, cells)
		}
		sheets = append(sheets, s)
	}
	return renderSheets(sheets), "", nil
}

// xlsRow returns row i, or nil when the sheet has no such row.
// WorkSheet.Row dereferences missing rows.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}
