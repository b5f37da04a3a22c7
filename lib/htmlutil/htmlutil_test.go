package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestHiddenInputs(t *testing.T) {
	d := doc(t, `<form>
		<input type="hidden" name="__VIEWSTATE" value="abc123" />
		<input type="hidden" name="__EVENTVALIDATION" value="xyz" />
		<input type="hidden" value="nameless" />
		<input type="text" name="txtLastName" value="visible" />
	</form>`)

	fields := HiddenInputs(d)
	require.Equal(t, map[string]string{
		"__VIEWSTATE":       "abc123",
		"__EVENTVALIDATION": "xyz",
	}, fields)
}

func TestLabelValueTable(t *testing.T) {
	d := doc(t, `<table>
		<tr><td>Member Name:</td><td>  Jane   Doe </td></tr>
		<tr><td>City</td><td>Halifax</td></tr>
		<tr><td colspan="2">chrome row</td></tr>
	</table>`)

	values := LabelValueTable(d)
	require.Equal(t, "Jane Doe", values["Member Name"])
	require.Equal(t, "Halifax", values["City"])
}

func TestGetAnchors(t *testing.T) {
	d := doc(t, `<div>
		<a href="/corp/1234">ACME Ltd</a>
		<a>no href</a>
	</div>`)

	anchors := GetAnchors(d.Find("a"))
	require.Len(t, anchors, 1)
	require.Equal(t, "ACME Ltd", anchors[0].Name)
	require.Equal(t, "/corp/1234", anchors[0].Href)
}
