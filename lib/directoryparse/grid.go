package directoryparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cpaintel-backend/lib/htmlutil"
	"cpaintel-backend/lib/textutil"
)

// row classes used by the directories for non-data chrome
var chromeRowMarkers = []string{"header", "pager", "pagination", "footer", "no-records", "noresults"}

var noResultsMarkers = []string{"no records", "no results", "no members", "aucun résultat", "0 results"}

// ParseGrid extracts person records from an HTML result table using a
// declarative column map. Header, pager and no-results rows are
// skipped by row class, th-only content or cell count.
func ParseGrid(doc *goquery.Document, cfg ColumnMap) []Person {
	minCells := cfg.maxIndex() + 1

	var people []Person
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		class := strings.ToLower(row.AttrOr("class", ""))
		for _, marker := range chromeRowMarkers {
			if strings.Contains(class, marker) {
				return
			}
		}
		if row.Find("th").Length() > 0 {
			return
		}

		cells := row.Find("td")
		if cells.Length() < minCells {
			return
		}
		rowText := strings.ToLower(htmlutil.CleanText(row))
		for _, marker := range noResultsMarkers {
			if strings.Contains(rowText, marker) {
				return
			}
		}

		cellText := func(idx int) string {
			if idx == NoColumn {
				return ""
			}
			return htmlutil.CleanText(cells.Eq(idx))
		}

		p := Person{
			City:        cellText(cfg.City),
			Designation: cellText(cfg.Designation),
		}

		switch {
		case cfg.FullName != NoColumn:
			raw := cellText(cfg.FullName)
			if cfg.DesignationInName {
				last, first, designation := textutil.SplitCommaName(raw)
				p.LastName = last
				p.FirstName = first
				if p.Designation == "" {
					p.Designation = designation
				}
				p.FullName = strings.TrimSpace(first + " " + last)
			} else {
				p.FullName = raw
				p.FirstName, p.LastName = textutil.SplitFullName(raw)
			}
		default:
			p.FirstName = cellText(cfg.FirstName)
			raw := cellText(cfg.LastName)
			if cfg.DesignationInName {
				last, first, designation := textutil.SplitCommaName(raw)
				p.LastName = last
				if p.FirstName == "" {
					p.FirstName = first
				}
				if p.Designation == "" {
					p.Designation = designation
				}
			} else {
				p.LastName = raw
			}
			p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
		}

		if !plausibleName(p.FullName) {
			return
		}
		people = append(people, p)
	})

	return people
}
