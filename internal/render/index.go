package render

import "strconv"

// ReserveIndex creates blank pages for the index before any content
// page exists, so the index precedes all file sections. The span is
// sized as ceil(estimated/entriesPerIndexPage)+1; even an empty
// archive reserves one page. Returns the number of pages reserved.
func (d *Document) ReserveIndex(estimatedEntries int) int {
	reserve := (estimatedEntries+entriesPerIndexPage-1)/entriesPerIndexPage + 1

	d.indexStart = d.pdf.PageCount() + 1
	d.indexPages = reserve
	for i := 0; i < reserve; i++ {
		d.pdf.AddPage()
	}
	return reserve
}

// WriteIndex backfills the reserved pages once every file has
// rendered and true page numbers are known. Rows appear in insertion
// order: the title as a clickable link to the file's anchor, the page
// number right-aligned. When the reserved span runs out, additional
// index pages are appended at the end of the document; content pages
// are never overwritten.
func (d *Document) WriteIndex(subtitle string, entries []TocEntry) {
	cur := d.indexStart
	d.pdf.SetPage(cur)

	d.pdf.SetFont("Helvetica", "B", 20)
	d.pdf.SetTextColor(40, 53, 70)
	d.pdf.SetXY(pageMargin, pageMargin+6)
	d.pdf.CellFormat(printableWidth, 26, "Index", "", 2, "L", false, 0, "")

	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.CellFormat(printableWidth, 14, d.fitText(d.tr(subtitle), printableWidth), "", 2, "L", false, 0, "")

	d.pdf.SetDrawColor(40, 53, 70)
	d.pdf.SetLineWidth(0.8)
	d.pdf.Line(pageMargin, pageMargin+indexTitleBlockH-8, pageMargin+printableWidth, pageMargin+indexTitleBlockH-8)

	y := pageMargin + indexTitleBlockH
	titleW := printableWidth - indexPageColW

	for _, e := range entries {
		if y+indexRowH > contentBottom {
			cur = d.nextIndexPage(cur)
			y = pageMargin
		}

		d.pdf.SetFont("Helvetica", "", indexFontSize)
		d.pdf.SetTextColor(30, 70, 130)
		d.pdf.SetXY(pageMargin, y)
		d.pdf.CellFormat(titleW, indexRowH, d.fitText(d.tr(e.Title), titleW-8), "", 0, "L", false, e.Link, "")

		d.pdf.SetTextColor(60, 60, 60)
		d.pdf.CellFormat(indexPageColW, indexRowH, strconv.Itoa(e.Page), "", 0, "R", false, e.Link, "")

		d.pdf.SetDrawColor(225, 225, 225)
		d.pdf.SetLineWidth(0.4)
		d.pdf.Line(pageMargin, y+indexRowH, pageMargin+printableWidth, y+indexRowH)

		y += indexRowH
	}

	d.pdf.SetTextColor(0, 0, 0)
}

// nextIndexPage moves to the next reserved page, or appends a page at
// the document end once the reservation is exhausted.
func (d *Document) nextIndexPage(cur int) int {
	if cur < d.indexStart+d.indexPages-1 {
		cur++
		d.pdf.SetPage(cur)
		return cur
	}
	// Estimate was short. Appending keeps the already-rendered
	// content pages intact at the cost of index pages out of order.
	d.pdf.SetPage(d.pdf.PageCount())
	d.pdf.AddPage()
	return d.pdf.PageNo()
}
