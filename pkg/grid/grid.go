// Package grid resolves HTML table spans into a dense two-dimensional grid.
//
// Flatten repeats every cell with a colspan across the columns it covers and
// every cell with a rowspan down the rows it covers, so positional column
// lookups work on tables that merge header or body cells.
package grid

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Cell is one table cell. Span values below 2 are treated as no span.
type Cell struct {
	Text    string
	ColSpan int
	RowSpan int
	// Node is the source element when the cell came from a parsed document.
	Node *goquery.Selection

	colDone bool
	rowDone bool
}

// NewCell returns a detached cell, mostly useful in tests.
func NewCell(text string, colSpan, rowSpan int) *Cell {
	return &Cell{Text: text, ColSpan: colSpan, RowSpan: rowSpan}
}

// ParseSpan converts a colspan/rowspan attribute. Only a string made of
// ASCII digits is honored; everything else, including zero, yields 1.
func ParseSpan(attr string) int {
	if attr == "" {
		return 1
	}
	for _, r := range attr {
		if r < '0' || r > '9' {
			return 1
		}
	}
	n, err := strconv.Atoi(attr)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Flatten expands spans in two passes, columns first and then rows.
//
// In the column pass, a cell of the first row is always repeated; in later
// rows a copy is inserted only while the row is still shorter than the row
// above it, which keeps colspans from overflowing rows that an earlier
// rowspan will fill. The row pass then inserts each spanning cell into the
// same column of the following rows, truncated at the end of the table.
//
// The input slices are never modified and ragged rows are allowed.
func Flatten(rows [][]*Cell) [][]*Cell {
	out := make([][]*Cell, len(rows))
	for i, row := range rows {
		out[i] = append([]*Cell(nil), row...)
	}

	expandColumns(out)
	expandRows(out)
	return out
}

func expandColumns(g [][]*Cell) {
	for rdx := range g {
		for cdx := 0; cdx < len(g[rdx]); cdx++ {
			cell := g[rdx][cdx]
			if cell == nil || cell.colDone || cell.ColSpan < 2 {
				continue
			}
			cell.colDone = true
			for x := 1; x < cell.ColSpan; x++ {
				if rdx == 0 || len(g[rdx]) < len(g[rdx-1]) {
					g[rdx] = insertAt(g[rdx], cdx, cell)
				}
			}
		}
	}
	resetMarkers(g)
}

func expandRows(g [][]*Cell) {
	for rdx := range g {
		for cdx := 0; cdx < len(g[rdx]); cdx++ {
			cell := g[rdx][cdx]
			if cell == nil || cell.rowDone || cell.RowSpan < 2 {
				continue
			}
			cell.rowDone = true
			for x := 1; x < cell.RowSpan; x++ {
				target := rdx + x
				if target >= len(g) {
					break
				}
				g[target] = insertAt(g[target], cdx, cell)
			}
		}
	}
	resetMarkers(g)
}

func resetMarkers(g [][]*Cell) {
	for _, row := range g {
		for _, cell := range row {
			if cell != nil {
				cell.colDone = false
				cell.rowDone = false
			}
		}
	}
}

// insertAt inserts c before index i, appending when i is past the end.
func insertAt(row []*Cell, i int, c *Cell) []*Cell {
	if i >= len(row) {
		return append(row, c)
	}
	row = append(row, nil)
	copy(row[i+1:], row[i:])
	row[i] = c
	return row
}

// Text returns the trimmed text of every cell.
func Text(g [][]*Cell) [][]string {
	out := make([][]string, len(g))
	for i, row := range g {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[i][j] = strings.TrimSpace(cell.Text)
			}
		}
	}
	return out
}

// FromTable builds rows from a table selection. Rows are its tr elements and
// cells are the th/td children of each row in document order. Line breaks
// are kept as newlines in the cell text.
func FromTable(table *goquery.Selection) [][]*Cell {
	var rows [][]*Cell
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []*Cell
		tr.ChildrenFiltered("th, td").Each(func(_ int, td *goquery.Selection) {
			colSpan, _ := td.Attr("colspan")
			rowSpan, _ := td.Attr("rowspan")
			row = append(row, &Cell{
				Text:    cellText(td),
				ColSpan: ParseSpan(colSpan),
				RowSpan: ParseSpan(rowSpan),
				Node:    td,
			})
		})
		rows = append(rows, row)
	})
	return rows
}

// FlattenTable is FromTable followed by Flatten and Text.
func FlattenTable(table *goquery.Selection) [][]string {
	return Text(Flatten(FromTable(table)))
}

func cellText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
	case n.Type == html.ElementNode && n.Data == "br":
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}
