// Package directoryparse converts raw directory responses into partial
// person records. Three response shapes exist across the provincial
// directories: tabular result grids, single-person detail pages and
// JSON arrays embedded in client-side script. The caller is
// responsible for hashing and dedup.
package directoryparse

import "errors"

type Person struct {
	FirstName   string
	LastName    string
	FullName    string
	City        string
	Designation string
}

// ErrTooManyResults is returned when the directory refuses a query for
// matching too many members and asks for a narrower search. Callers
// must narrow rather than treat it as zero results.
var ErrTooManyResults = errors.New("directory refused query: too many results, narrow the search")

const NoColumn = -1

// defensive bound against mis-parsed markup masquerading as a name
const maxNameLength = 100

// ColumnMap declares which result-grid column holds what. A directory
// either has one combined full-name column or separate first/last
// columns; DesignationInName marks grids whose name cell carries
// trailing credential text ("Smith, John CPA, CA").
type ColumnMap struct {
	FullName          int
	FirstName         int
	LastName          int
	City              int
	Designation       int
	DesignationInName bool
}

// NewColumnMap returns a map with every column marked absent.
func NewColumnMap() ColumnMap {
	return ColumnMap{
		FullName:    NoColumn,
		FirstName:   NoColumn,
		LastName:    NoColumn,
		City:        NoColumn,
		Designation: NoColumn,
	}
}

func (m ColumnMap) maxIndex() int {
	max := NoColumn
	for _, idx := range []int{m.FullName, m.FirstName, m.LastName, m.City, m.Designation} {
		if idx > max {
			max = idx
		}
	}
	return max
}

func plausibleName(name string) bool {
	return name != "" && len(name) <= maxNameLength
}
