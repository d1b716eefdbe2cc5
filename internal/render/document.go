// Package render lays out archive contents as a paginated PDF report:
// a cover page, a clickable index over pre-reserved pages, and
// line-numbered per-file sections.
package render

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Page geometry, in points. A4 portrait with fixed margins.
const (
	pageWidth  = 595.28
	pageHeight = 841.89
	pageMargin = 40.0

	headerHeight = 24.0
	headerGap    = 6.0

	contentFontSize = 8.0
	contentLineH    = 10.0
	minRowHeight    = 10.0
	gutterWidth     = 30.0
	gutterGap       = 6.0

	// Courier glyphs are 600/1000 em wide, so the character grid is
	// exact and wrap measurement needs no font queries.
	courierCharW = contentFontSize * 0.6

	indexTitleBlockH = 80.0
	indexRowH        = 28.0
	indexFontSize    = 11.0
	indexPageColW    = 60.0

	footerFontSize = 8.0

	// entriesPerIndexPage sizes the up-front index reservation. The
	// real per-page capacity depends on layout; WriteIndex appends
	// extra pages when the estimate falls short.
	entriesPerIndexPage = 35
)

var (
	printableWidth = pageWidth - 2*pageMargin
	contentTextW   = printableWidth - gutterWidth - gutterGap
	contentBottom  = pageHeight - pageMargin

	// maxLineChars is the content column width in characters.
	maxLineChars = int(contentTextW / courierCharW)
)

// TocEntry is one row of the generated index: the file title, its
// internal link anchor, and the page number captured when the file's
// first page was created.
type TocEntry struct {
	Title string
	Link  int
	Page  int
}

// Document is a report under construction. Pages accumulate through
// AddCover, ReserveIndex, and RenderFile; WriteIndex then backfills the
// reserved range, and Save serializes the result. Not safe for
// concurrent use.
type Document struct {
	pdf *fpdf.Fpdf
	// tr maps UTF-8 to the cp1252 bytes the core fonts draw.
	tr func(string) string

	cursorY    float64
	indexStart int
	indexPages int
}

// NewDocument creates an empty report document.
func NewDocument() *Document {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	// Pagination is decided row by row in this package; the automatic
	// page break would fire mid-row and during index backfill.
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("repoprint", false)
	pdf.AliasNbPages("")

	d := &Document{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-30)
		pdf.SetFont("Helvetica", "I", footerFontSize)
		pdf.SetTextColor(130, 130, 130)
		pdf.CellFormat(0, 12, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	return d
}

// AddCover adds the cover page: report title, file count, and
// generation time. Must be called first, before any reservation.
func (d *Document) AddCover(title string, fileCount int, generatedAt time.Time) {
	d.pdf.SetTitle(title, true)
	d.pdf.AddPage()

	d.pdf.SetFont("Helvetica", "B", 28)
	d.pdf.SetTextColor(40, 53, 70)
	d.pdf.SetXY(pageMargin, 220)
	d.pdf.CellFormat(printableWidth, 34, d.fitText(d.tr(title), printableWidth), "", 2, "C", false, 0, "")

	d.pdf.SetDrawColor(40, 53, 70)
	d.pdf.SetLineWidth(1)
	d.pdf.Line(pageWidth/2-80, 270, pageWidth/2+80, 270)

	d.pdf.SetFont("Helvetica", "", 12)
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.SetXY(pageMargin, 290)
	d.pdf.CellFormat(printableWidth, 18, "Repository source report", "", 2, "C", false, 0, "")

	noun := "files"
	if fileCount == 1 {
		noun = "file"
	}
	d.pdf.CellFormat(printableWidth, 18, fmt.Sprintf("%d %s", fileCount, noun), "", 2, "C", false, 0, "")
	d.pdf.CellFormat(printableWidth, 18, generatedAt.Format("2 January 2006 15:04 MST"), "", 2, "C", false, 0, "")

	d.pdf.SetTextColor(0, 0, 0)
}

// PageCount returns the number of pages committed so far.
func (d *Document) PageCount() int {
	return d.pdf.PageCount()
}

// Err returns the document's sticky error state, if any.
func (d *Document) Err() error {
	return d.pdf.Error()
}

// Save finalizes the document and writes it to path.
func (d *Document) Save(path string) error {
	// Leave the last page current so the close-time footer lands on
	// it rather than on whichever page the backfill visited last.
	if n := d.pdf.PageCount(); n > 0 {
		d.pdf.SetPage(n)
	}
	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// fitText shortens s with an ellipsis until it fits width w in the
// current font. s must already be translated to codepage bytes, where
// one byte is one glyph.
func (d *Document) fitText(s string, w float64) string {
	if d.pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
