package directory

import "cpaintel-backend/lib/directoryparse"

// Jurisdictions declares all ten target directories. The differences
// between provinces are configuration data, not code: entry URLs,
// column layouts, which enumeration strategy fits the search form's
// matching behavior.
func Jurisdictions() []Config {
	gridNameCity := directoryparse.NewColumnMap()
	gridNameCity.FullName = 0
	gridNameCity.City = 1
	gridNameCity.DesignationInName = true

	gridSeparate := directoryparse.NewColumnMap()
	gridSeparate.FirstName = 0
	gridSeparate.LastName = 1
	gridSeparate.City = 2
	gridSeparate.Designation = 3

	gridNameCityDesignation := directoryparse.NewColumnMap()
	gridNameCityDesignation.FullName = 0
	gridNameCityDesignation.City = 1
	gridNameCityDesignation.Designation = 2

	return []Config{
		{
			// ASP.NET WebForms member grid matching on last-name prefix
			Source:      "cpa-bc",
			Province:    "BC",
			EntryURL:    "https://www.bccpa.ca/member-search/",
			SearchField: "ctl00$MainContent$txtLastName",
			ClearFields: []string{"ctl00$MainContent$txtFirstName", "ctl00$MainContent$txtCity"},
			Strategy:    StrategyPrefix,
			Parser:      ParserGrid,
			Columns:     gridNameCity,
		},
		{
			// exact-match search that returns a single detail page and
			// refuses popular surnames outright
			Source:       "cpa-ab",
			Province:     "AB",
			EntryURL:     "https://members.cpaalberta.ca/directory/search.aspx",
			SearchField:  "txtLastName",
			InitialField: "txtFirstName",
			Strategy:     StrategyNarrow,
			Parser:       ParserDetail,
		},
		{
			Source:      "cpa-sk",
			Province:    "SK",
			EntryURL:    "https://members.cpask.ca/memberdirectory",
			SearchField: "LastName",
			Strategy:    StrategyExactList,
			Parser:      ParserGrid,
			Columns:     gridSeparate,
		},
		{
			Source:      "cpa-mb",
			Province:    "MB",
			EntryURL:    "https://search.cpamb.ca/members",
			SearchField: "surname",
			Strategy:    StrategyPrefix,
			Parser:      ParserGrid,
			Columns:     gridNameCityDesignation,
		},
		{
			// Salesforce Lightning SPA, no server-rendered results
			Source:   "cpa-on",
			Province: "ON",
			EntryURL: "https://myportal.cpaontario.ca/s/member-directory",
			Strategy: StrategySPA,
			Parser:   ParserScriptArray,
		},
		{
			Source:       "cpa-qc",
			Province:     "QC",
			EntryURL:     "https://cpaquebec.ca/en/find-a-cpa/directory/",
			SearchField:  "nom",
			InitialField: "prenom",
			Strategy:     StrategyNarrow,
			Parser:       ParserGrid,
			Columns:      gridNameCity,
		},
		{
			Source:      "cpa-nb",
			Province:    "NB",
			EntryURL:    "https://directory.cpanewbrunswick.ca/search",
			SearchField: "lastName",
			Strategy:    StrategyExactList,
			Parser:      ParserGrid,
			Columns:     gridSeparate,
		},
		{
			// Sitecore backend returning a script-embedded JSON array
			Source:      "cpa-ns",
			Province:    "NS",
			EntryURL:    "https://www.cpans.ca/web/cpans/member-search",
			SearchField: "lastName",
			Strategy:    StrategyPrefix,
			Parser:      ParserScriptArray,
		},
		{
			Source:       "cpa-pe",
			Province:     "PE",
			EntryURL:     "https://cpapei.ca/find-a-cpa/",
			SearchField:  "lastname",
			Strategy:     StrategyExactList,
			Parser:       ParserGrid,
			Columns:      gridNameCity,
			CaptchaGated: true,
		},
		{
			Source:      "cpa-nl",
			Province:    "NL",
			EntryURL:    "https://cpanl.ca/members/directory",
			SearchField: "LastName",
			Strategy:    StrategyExactList,
			Parser:      ParserGrid,
			Columns:     gridNameCityDesignation,
		},
	}
}
