package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// binarySniffLen is how many leading bytes are inspected for a NUL
// byte when classifying a file as binary.
const binarySniffLen = 1000

// IsBinary reports whether data looks binary: a NUL byte anywhere in
// the first 1000 bytes. A NUL at a later offset does not count.
func IsBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// Sanitize prepares raw file bytes for layout: malformed UTF-8 is
// replaced, and control characters are stripped except CR and LF
// (which delimit lines) and TAB (expanded later). Printable text
// passes through unchanged.
func Sanitize(data []byte) string {
	s := strings.ToValidUTF8(string(data), "�")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F):
			return -1
		}
		return r
	}, s)
}

// splitLines breaks sanitized text into rows. CRLF and LF both
// delimit; a CR that is part of no line ending has no splitting role
// and is dropped. A trailing newline does not produce an extra empty
// row.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "\r", "")
	}
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// wrapLine chunks one translated line into column-width segments.
// Translated text is one byte per glyph, and the content font is
// monospaced, so the split is exact. Empty lines yield one empty
// segment so the row still occupies vertical space.
func wrapLine(line string) []string {
	if line == "" {
		return []string{""}
	}
	segs := make([]string, 0, (len(line)+maxLineChars-1)/maxLineChars)
	for len(line) > maxLineChars {
		segs = append(segs, line[:maxLineChars])
		line = line[maxLineChars:]
	}
	return append(segs, line)
}

// RenderFile adds one file's section to the document: a fresh page
// with a header band, then the content rows. The returned TocEntry
// carries the page number captured at the section's first page, before
// any overflow pages, and the link anchor the index will use.
//
// Per-file problems never fail the document: a read error or binary
// classification renders as a one-line notice instead of content.
func (d *Document) RenderFile(relPath string, data []byte, truncated bool, readErr error) TocEntry {
	d.pdf.AddPage()
	page := d.pdf.PageNo()
	link := d.pdf.AddLink()
	d.pdf.SetLink(link, 0, page)
	d.pdf.Bookmark(relPath, 0, 0)

	d.fileHeader(relPath)

	switch {
	case readErr != nil:
		d.noticeRow(fmt.Sprintf("Error reading file: %v", readErr))
	case IsBinary(data):
		d.noticeRow("Binary file: content omitted")
	default:
		d.contentRows(data)
		if truncated {
			d.noticeRow(fmt.Sprintf("Content truncated to first %d bytes", len(data)))
		}
	}

	return TocEntry{Title: relPath, Link: link, Page: page}
}

// fileHeader draws the colored band with the file's relative path at
// the top of the section's first page.
func (d *Document) fileHeader(relPath string) {
	d.pdf.SetFillColor(40, 53, 70)
	d.pdf.Rect(pageMargin, pageMargin, printableWidth, headerHeight, "F")

	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetXY(pageMargin+8, pageMargin)
	d.pdf.CellFormat(printableWidth-16, headerHeight, d.fitText(d.tr(relPath), printableWidth-16), "", 0, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)

	d.cursorY = pageMargin + headerHeight + headerGap
}

// contentRows lays out sanitized text as line-numbered rows.
func (d *Document) contentRows(data []byte) {
	lines := splitLines(Sanitize(data))
	d.pdf.SetFont("Courier", "", contentFontSize)

	for i, line := range lines {
		line = strings.ReplaceAll(line, "\t", "    ")
		d.placeRow(strconv.Itoa(i+1), wrapLine(d.tr(line)))
	}
}

// placeRow places one row: the line number in the gutter beside the
// row's first segment, then every wrapped segment. Rows move to a new
// page rather than splitting, unless a single row is taller than a
// whole page, in which case its segments spill across pages.
func (d *Document) placeRow(num string, segs []string) {
	rowH := float64(len(segs)) * contentLineH
	if rowH < minRowHeight {
		rowH = minRowHeight
	}

	if d.cursorY+rowH > contentBottom && rowH <= contentBottom-pageMargin {
		d.contentPage()
	}

	numbered := false
	for _, seg := range segs {
		if d.cursorY+contentLineH > contentBottom {
			d.contentPage()
		}
		if !numbered {
			d.pdf.SetTextColor(130, 130, 130)
			d.pdf.SetXY(pageMargin, d.cursorY)
			d.pdf.CellFormat(gutterWidth, contentLineH, num, "", 0, "R", false, 0, "")
			d.pdf.SetTextColor(0, 0, 0)
			numbered = true
		}
		d.pdf.SetXY(pageMargin+gutterWidth+gutterGap, d.cursorY)
		d.pdf.CellFormat(contentTextW, contentLineH, seg, "", 0, "L", false, 0, "")
		d.cursorY += contentLineH
	}

	if placed := float64(len(segs)) * contentLineH; placed < rowH {
		d.cursorY += rowH - placed
	}
}

// contentPage starts a continuation page for the current file.
func (d *Document) contentPage() {
	d.pdf.AddPage()
	d.cursorY = pageMargin
}

// noticeRow renders an inline notice in place of file content.
func (d *Document) noticeRow(text string) {
	if d.cursorY+contentLineH > contentBottom {
		d.contentPage()
	}
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(120, 120, 120)
	d.pdf.SetXY(pageMargin+gutterWidth+gutterGap, d.cursorY)
	d.pdf.CellFormat(contentTextW, contentLineH, d.fitText(d.tr(text), contentTextW), "", 0, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.cursorY += contentLineH
	// Content continues in the content font after a truncation notice.
	d.pdf.SetFont("Courier", "", contentFontSize)
}