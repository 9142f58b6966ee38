package reader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"
)

// buildPDF assembles a minimal PDF with one page per entry. An empty
// entry becomes a page without a content stream.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}
	add("<< /Type /Catalog /Pages 2 0 R >>")
	add("") // page tree, filled in below
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	kids := make([]string, 0, len(pages))
	for _, text := range pages {
		page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]"
		if text != "" {
			stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
			content := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
			page += fmt.Sprintf(" /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R", font, content)
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", add(page+" >>")))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

// xlsSheet is one worksheet for buildXLS. Cells are string or float64,
// starting at column A; "" leaves a cell empty.
type xlsSheet struct {
	name string
	rows map[uint16][]any
}

const (
	cfbSector     = 512
	cfbEndOfChain = 0xFFFFFFFE
	cfbFree       = 0xFFFFFFFF
	cfbFATSect    = 0xFFFFFFFD
	// Streams below this size would live in the mini stream.
	cfbCutoff = 4096
)

// buildXLS writes a BIFF8 workbook inside a compound file.
func buildXLS(t *testing.T, sheets ...xlsSheet) []byte {
	t.Helper()
	return cfbFile(t, "Workbook", biffWorkbook(sheets))
}

// cfbFile wraps one stream in a compound file: one FAT sector, one
// directory sector and the stream padded to the regular-stream cutoff.
func cfbFile(t *testing.T, stream string, book []byte) []byte {
	t.Helper()
	if len(book) > cfbCutoff {
		t.Fatalf("fixture stream too large: %d bytes", len(book))
	}
	book = append(book, make([]byte, cfbCutoff-len(book))...)
	streamSectors := cfbCutoff / cfbSector

	le := binary.LittleEndian
	var out []byte

	// Header.
	hdr := make([]byte, cfbSector)
	le.PutUint32(hdr[0:], 0xE011CFD0)
	le.PutUint32(hdr[4:], 0xE11AB1A1)
	le.PutUint16(hdr[24:], 0x3E)
	le.PutUint16(hdr[26:], 3)
	le.PutUint16(hdr[28:], 0xFFFE)
	le.PutUint16(hdr[30:], 9)
	le.PutUint16(hdr[32:], 6)
	le.PutUint32(hdr[44:], 1) // FAT sectors
	le.PutUint32(hdr[48:], 1) // directory start
	le.PutUint32(hdr[56:], cfbCutoff)
	le.PutUint32(hdr[60:], cfbEndOfChain)
	le.PutUint32(hdr[68:], cfbEndOfChain)
	for i := 0; i < 109; i++ {
		le.PutUint32(hdr[76+4*i:], cfbFree)
	}
	le.PutUint32(hdr[76:], 0) // the FAT is sector 0
	out = append(out, hdr...)

	// Sector 0: FAT. Sector 1 directory, sectors 2.. the Workbook stream.
	fat := make([]byte, cfbSector)
	for i := 0; i < cfbSector/4; i++ {
		le.PutUint32(fat[4*i:], cfbFree)
	}
	le.PutUint32(fat[0:], cfbFATSect)
	le.PutUint32(fat[4:], cfbEndOfChain)
	for i := 0; i < streamSectors; i++ {
		next := uint32(2 + i + 1)
		if i == streamSectors-1 {
			next = cfbEndOfChain
		}
		le.PutUint32(fat[4*(2+i):], next)
	}
	out = append(out, fat...)

	// Sector 1: directory.
	dir := make([]byte, cfbSector)
	dirEntry(dir[0:128], "Root Entry", 5, 1, cfbEndOfChain, 0)
	dirEntry(dir[128:256], stream, 2, cfbFree, 2, cfbCutoff)
	out = append(out, dir...)

	return append(out, book...)
}

func dirEntry(e []byte, name string, typ byte, child, start, size uint32) {
	le := binary.LittleEndian
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		le.PutUint16(e[2*i:], u)
	}
	le.PutUint16(e[64:], uint16(2*(len(units)+1)))
	e[66] = typ
	e[67] = 1
	le.PutUint32(e[68:], cfbFree)
	le.PutUint32(e[72:], cfbFree)
	le.PutUint32(e[76:], child)
	le.PutUint32(e[116:], start)
	le.PutUint32(e[120:], size)
}

func biffRecord(id uint16, body []byte) []byte {
	rec := binary.LittleEndian.AppendUint16(nil, id)
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(body)))
	return append(rec, body...)
}

func biffBOF(kind uint16) []byte {
	body := binary.LittleEndian.AppendUint16(nil, 0x0600)
	body = binary.LittleEndian.AppendUint16(body, kind)
	return biffRecord(0x0809, append(body, make([]byte, 12)...))
}

func biffWorkbook(sheets []xlsSheet) []byte {
	le := binary.LittleEndian
	var sst []string
	sstIndex := map[string]uint32{}
	for _, s := range sheets {
		for _, row := range s.rows {
			for _, c := range row {
				if str, ok := c.(string); ok && str != "" {
					if _, seen := sstIndex[str]; !seen {
						sstIndex[str] = uint32(len(sst))
						sst = append(sst, str)
					}
				}
			}
		}
	}

	substreams := make([][]byte, len(sheets))
	for i, s := range sheets {
		substreams[i] = biffSheet(s, sstIndex)
	}

	boundsheet := func(filepos uint32, name string) []byte {
		body := le.AppendUint32(nil, filepos)
		body = append(body, 0, 0, byte(len(name)), 0)
		return biffRecord(0x0085, append(body, name...))
	}

	sstBody := le.AppendUint32(nil, uint32(len(sst)))
	sstBody = le.AppendUint32(sstBody, uint32(len(sst)))
	for _, s := range sst {
		sstBody = le.AppendUint16(sstBody, uint16(len(s)))
		sstBody = append(sstBody, 0)
		sstBody = append(sstBody, s...)
	}

	globalsLen := len(biffBOF(0x0005)) + len(biffRecord(0x00FC, sstBody)) + 4
	for _, s := range sheets {
		globalsLen += len(boundsheet(0, s.name))
	}

	out := biffBOF(0x0005)
	pos := uint32(globalsLen)
	for i, s := range sheets {
		out = append(out, boundsheet(pos, s.name)...)
		pos += uint32(len(substreams[i]))
	}
	out = append(out, biffRecord(0x00FC, sstBody)...)
	out = append(out, biffRecord(0x000A, nil)...)
	for _, sub := range substreams {
		out = append(out, sub...)
	}
	return out
}

func biffSheet(s xlsSheet, sstIndex map[string]uint32) []byte {
	le := binary.LittleEndian
	indexes := make([]int, 0, len(s.rows))
	for r := range s.rows {
		indexes = append(indexes, int(r))
	}
	sort.Ints(indexes)

	out := biffBOF(0x0010)
	for _, r := range indexes {
		cells := s.rows[uint16(r)]
		row := le.AppendUint16(nil, uint16(r))
		row = le.AppendUint16(row, 0)
		row = le.AppendUint16(row, uint16(len(cells)))
		row = append(row, make([]byte, 10)...)
		out = append(out, biffRecord(0x0208, row)...)
	}
	for _, r := range indexes {
		for c, cell := range s.rows[uint16(r)] {
			head := le.AppendUint16(nil, uint16(r))
			head = le.AppendUint16(head, uint16(c))
			head = le.AppendUint16(head, 0) // XF
			switch v := cell.(type) {
			case string:
				if v == "" {
					continue
				}
				out = append(out, biffRecord(0x00FD, le.AppendUint32(head, sstIndex[v]))...)
			case float64:
				out = append(out, biffRecord(0x0203, le.AppendUint64(head, math.Float64bits(v)))...)
			}
		}
	}
	return append(out, biffRecord(0x000A, nil)...)
}
