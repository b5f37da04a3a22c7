// Package directory implements the generic provincial-directory
// scraper. Jurisdictions differ only by configuration: entry URL, a
// declarative column map, an enumeration strategy tag and a couple of
// form-field names. The four enumeration strategies are the only
// algorithmic variation.
package directory

import (
	"context"
	"errors"
	"fmt"

	"cpaintel-backend/lib/directoryparse"
)

type StrategyTag string

const (
	// aa..zz last-name prefix sweep for prefix-matching search forms
	StrategyPrefix StrategyTag = "prefix"
	// curated common-surname list for exact-match search forms
	StrategyExactList StrategyTag = "exactlist"
	// surname search with A–Z first-initial narrowing on refusal
	StrategyNarrow StrategyTag = "narrow"
	// plain GET with a query-string filter against script-rendered SPAs
	StrategySPA StrategyTag = "spa"
)

type ParserTag string

const (
	ParserGrid        ParserTag = "grid"
	ParserDetail      ParserTag = "detail"
	ParserScriptArray ParserTag = "scriptarray"
)

// ErrCaptchaDetected distinguishes "blocked by a protection wall" from
// "scraper broke" in job records.
var ErrCaptchaDetected = errors.New("captcha challenge detected, directory needs a browser-automation integration")

// Config declares everything jurisdiction-specific about a directory.
type Config struct {
	// source tag persisted on records and jobs, e.g. "cpa-bc"
	Source   string
	Province string
	EntryURL string
	// form POST target, defaults to EntryURL
	SearchURL string
	// form field carrying the last-name search term
	SearchField string
	// form field carrying the first-name initial, used by narrowing
	InitialField string
	// non-hidden form fields cleared on every search
	ClearFields []string
	Strategy    StrategyTag
	Parser      ParserTag
	Columns     directoryparse.ColumnMap
	// directories behind a captcha are probed and failed fast
	CaptchaGated bool
}

func (c Config) searchURL() string {
	if c.SearchURL != "" {
		return c.SearchURL
	}
	return c.EntryURL
}

func (c Config) validate() error {
	if c.Source == "" || c.Province == "" || c.EntryURL == "" {
		return fmt.Errorf("directory config requires source, province and entry url")
	}
	if c.Strategy != StrategySPA && c.SearchField == "" {
		return fmt.Errorf("%s: search field is required for form-driven strategies", c.Source)
	}
	return nil
}

// Person is a fully-attributed record ready for the dedup check and
// insert.
type Person struct {
	Source       string
	FirstName    string
	LastName     string
	FullName     string
	Designation  string
	Province     string
	City         string
	IdentityHash string
}

// Store is the persistence surface a scraper needs: the dedup lookup
// and the insert.
type Store interface {
	HasPerson(ctx context.Context, identityHash string) (bool, error)
	InsertPerson(ctx context.Context, p Person, jobID string) error
}

// Counts summarizes one run, mirroring what the job record carries.
type Counts struct {
	Found    int
	Inserted int
	Skipped  int
	// operator-visible limitation note, e.g. a SPA sweep that found
	// nothing because nothing is server-rendered
	Note string
}
