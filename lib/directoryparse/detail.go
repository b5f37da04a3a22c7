package directoryparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cpaintel-backend/lib/htmlutil"
	"cpaintel-backend/lib/textutil"
)

var tooManyMarkers = []string{
	"too many results",
	"refine your search",
	"narrow your search",
	"please refine",
}

// DetectRefusal reports whether a response is a "too many results"
// refusal rather than a result set. The whole body text is scanned:
// directories emit the sentinel in headings, message divs or plain
// paragraphs interchangeably.
func DetectRefusal(doc *goquery.Document) bool {
	body := strings.ToLower(htmlutil.CleanText(doc.Find("body")))
	for _, marker := range tooManyMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func detectNoResults(doc *goquery.Document) bool {
	body := strings.ToLower(htmlutil.CleanText(doc.Find("body")))
	for _, marker := range noResultsMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// ParseDetail reads the single-person label/value page some
// directories return when a search matches exactly one member.
// Sentinel pages are mapped to distinguishable outcomes:
// ErrTooManyResults when the caller must narrow the query, (nil, nil)
// when the search legitimately matched nobody.
func ParseDetail(doc *goquery.Document) (*Person, error) {
	if DetectRefusal(doc) {
		return nil, ErrTooManyResults
	}
	if detectNoResults(doc) {
		return nil, nil
	}

	values := htmlutil.LabelValueTable(doc)

	p := Person{
		FullName:    firstOf(values, "Member Name", "Name", "Full Name"),
		FirstName:   firstOf(values, "First Name", "Given Name"),
		LastName:    firstOf(values, "Last Name", "Surname"),
		City:        firstOf(values, "City", "Location", "Municipality"),
		Designation: firstOf(values, "Designation", "Designations", "Credentials"),
	}

	if p.FullName == "" && p.LastName != "" {
		p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if p.FullName != "" && p.LastName == "" {
		p.FirstName, p.LastName = textutil.SplitFullName(p.FullName)
	}

	if !plausibleName(p.FullName) {
		return nil, nil
	}
	return &p, nil
}

func firstOf(values map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := values[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
