package directoryparse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cpaintel-backend/lib/htmlutil"
	"cpaintel-backend/lib/textutil"
)

// matches `something = [ ... ];` script assignments of a JSON array
var scriptArrayRegex = regexp.MustCompile(`(?s)=\s*(\[.*?\])\s*;`)

// ParseScriptArray handles backends that return an HTML fragment whose
// results live in a client-side script assignment of a JSON array
// literal. When no decodable array is present it falls back to
// scanning card/row-like elements for name and city text.
func ParseScriptArray(doc *goquery.Document) []Person {
	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		groups := scriptArrayRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}

		var rows []map[string]any
		if err := json.Unmarshal([]byte(groups[1]), &rows); err != nil {
			continue
		}

		var people []Person
		for _, row := range rows {
			p := Person{
				FirstName:   stringField(row, "firstName", "FirstName", "first_name"),
				LastName:    stringField(row, "lastName", "LastName", "last_name"),
				FullName:    stringField(row, "name", "Name", "fullName", "FullName"),
				City:        stringField(row, "city", "City", "location"),
				Designation: stringField(row, "designation", "Designation", "designations"),
			}
			if p.FullName == "" {
				p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
			}
			if p.LastName == "" && p.FullName != "" {
				p.FirstName, p.LastName = textutil.SplitFullName(p.FullName)
			}
			if !plausibleName(p.FullName) {
				continue
			}
			people = append(people, p)
		}
		if len(people) > 0 {
			return people
		}
	}

	return scanCards(doc)
}

func stringField(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k].(string); ok && v != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func scanCards(doc *goquery.Document) []Person {
	var people []Person
	doc.Find(".member-card, .result-card, .search-result, .directory-row, li.member").
		Each(func(_ int, card *goquery.Selection) {
			name := htmlutil.CleanText(card.Find(".name, .member-name, h3, h4").First())
			if name == "" {
				return
			}
			p := Person{
				FullName: name,
				City:     htmlutil.CleanText(card.Find(".city, .location").First()),
			}
			p.FirstName, p.LastName = textutil.SplitFullName(name)
			if !plausibleName(p.FullName) {
				return
			}
			people = append(people, p)
		})
	return people
}
