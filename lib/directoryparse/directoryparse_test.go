package directoryparse

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestParseGridSample(t *testing.T) {
	d := doc(t, `<table>
		<tr class="gridHeader"><td>Name</td><td>City</td></tr>
		<tr><td>Smith, John CPA, CA</td><td>Toronto</td></tr>
		<tr><td>Doe, Jane CPA, CMA</td><td>Ottawa</td></tr>
		<tr class="noResultsRow"><td>No records found.</td><td></td></tr>
	</table>`)

	cfg := NewColumnMap()
	cfg.FullName = 0
	cfg.City = 1
	cfg.DesignationInName = true

	people := ParseGrid(d, cfg)
	require.Len(t, people, 2)

	want := Person{
		FirstName:   "John",
		LastName:    "Smith",
		FullName:    "John Smith",
		City:        "Toronto",
		Designation: "CPA, CA",
	}
	if diff := cmp.Diff(want, people[0]); diff != "" {
		t.Fatalf("first row mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "Jane", people[1].FirstName)
	require.Equal(t, "Doe", people[1].LastName)
}

func TestParseGridSeparateColumns(t *testing.T) {
	d := doc(t, `<table>
		<tr><th>First</th><th>Last</th><th>City</th><th>Designation</th></tr>
		<tr><td>Alice</td><td>Wong</td><td>Vancouver</td><td>CPA, CGA</td></tr>
		<tr><td></td><td></td><td></td><td></td></tr>
	</table>`)

	cfg := NewColumnMap()
	cfg.FirstName = 0
	cfg.LastName = 1
	cfg.City = 2
	cfg.Designation = 3

	people := ParseGrid(d, cfg)
	require.Len(t, people, 1)
	require.Equal(t, "Alice Wong", people[0].FullName)
	require.Equal(t, "CPA, CGA", people[0].Designation)
}

func TestParseGridRejectsImplausibleNames(t *testing.T) {
	long := strings.Repeat("x", 200)
	d := doc(t, `<table><tr><td>`+long+`</td><td>Toronto</td></tr></table>`)

	cfg := NewColumnMap()
	cfg.FullName = 0
	cfg.City = 1

	require.Empty(t, ParseGrid(d, cfg))
}

func TestParseDetail(t *testing.T) {
	d := doc(t, `<h2>Member Details</h2><table>
		<tr><td>Member Name:</td><td>Jane Doe</td></tr>
		<tr><td>City:</td><td>Calgary</td></tr>
		<tr><td>Designations:</td><td>CPA, CA</td></tr>
	</table>`)

	p, err := ParseDetail(d)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "Jane Doe", p.FullName)
	require.Equal(t, "Jane", p.FirstName)
	require.Equal(t, "Doe", p.LastName)
	require.Equal(t, "Calgary", p.City)
	require.Equal(t, "CPA, CA", p.Designation)
}

func TestParseDetailSentinels(t *testing.T) {
	tooMany := doc(t, `<h2>Too many results were found. Please refine your search.</h2>`)
	_, err := ParseDetail(tooMany)
	require.ErrorIs(t, err, ErrTooManyResults)

	none := doc(t, `<h2>No results matched your search.</h2>`)
	p, err := ParseDetail(none)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestParseDetailSentinelsOutsideHeadings(t *testing.T) {
	tooMany := doc(t, `<div class="content"><p>Your search returned too many results. Please refine your search criteria.</p></div>`)
	_, err := ParseDetail(tooMany)
	require.ErrorIs(t, err, ErrTooManyResults)

	none := doc(t, `<div><p>No records were found for the criteria entered.</p></div>`)
	p, err := ParseDetail(none)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestDetectRefusal(t *testing.T) {
	refusal := doc(t, `<body><p>Too many results were found. Please narrow your search.</p></body>`)
	require.True(t, DetectRefusal(refusal))

	results := doc(t, `<table><tr><td>Smith, John CPA</td><td>Toronto</td></tr></table>`)
	require.False(t, DetectRefusal(results))
}

func TestParseScriptArray(t *testing.T) {
	d := doc(t, `<div id="results"></div>
	<script>
	var memberData = [
		{"firstName":"Sam","lastName":"MacDonald","city":"Halifax","designation":"CPA"},
		{"name":"Pat Boudreau","city":"Sydney"}
	];
	</script>`)

	people := ParseScriptArray(d)
	require.Len(t, people, 2)
	require.Equal(t, "Sam MacDonald", people[0].FullName)
	require.Equal(t, "Halifax", people[0].City)
	require.Equal(t, "Boudreau", people[1].LastName)
}

func TestParseScriptArrayCardFallback(t *testing.T) {
	d := doc(t, `<ul>
		<li class="member"><h3>Lee Tran</h3><span class="city">Dartmouth</span></li>
		<li class="member"><h3></h3></li>
	</ul>`)

	people := ParseScriptArray(d)
	require.Len(t, people, 1)
	require.Equal(t, "Lee Tran", people[0].FullName)
	require.Equal(t, "Dartmouth", people[0].City)
}
