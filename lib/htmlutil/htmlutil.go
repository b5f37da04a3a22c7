package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText extracts the visible text of a selection with whitespace
// and non-printable characters collapsed.
func CleanText(sel *goquery.Selection) string {
	text := removeNonPrintable(sel.Text())
	text = strings.Trim(text, " \t\n ")
	return strings.Join(strings.Fields(text), " ")
}

// HiddenInputs collects every input[type=hidden] name/value pair on a
// page. Legacy form backends (view-state and friends) require these to
// be echoed verbatim on the next POST.
func HiddenInputs(doc *goquery.Document) map[string]string {
	fields := map[string]string{}
	doc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			return
		}
		fields[name] = s.AttrOr("value", "")
	})
	return fields
}

// LabelValueTable reads two-column label/value rows into a map keyed by
// the label cell's cleaned text.
func LabelValueTable(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := CleanText(cells.Eq(0))
		if label == "" {
			return
		}
		out[strings.TrimSuffix(label, ":")] = CleanText(cells.Eq(1))
	})
	return out
}

type Anchor struct {
	Name string
	Href string
}

func GetAnchors(sel *goquery.Selection) []Anchor {
	var anchors []Anchor
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		anchors = append(anchors, Anchor{
			Name: CleanText(s),
			Href: href,
		})
	})
	return anchors
}
