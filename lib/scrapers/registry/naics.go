package registry

import "strings"

// two-digit NAICS sector prefixes to labels
var naicsSectors = map[string]string{
	"11": "Agriculture, Forestry, Fishing and Hunting",
	"21": "Mining, Quarrying, and Oil and Gas Extraction",
	"22": "Utilities",
	"23": "Construction",
	"31": "Manufacturing",
	"32": "Manufacturing",
	"33": "Manufacturing",
	"41": "Wholesale Trade",
	"44": "Retail Trade",
	"45": "Retail Trade",
	"48": "Transportation and Warehousing",
	"49": "Transportation and Warehousing",
	"51": "Information and Cultural Industries",
	"52": "Finance and Insurance",
	"53": "Real Estate and Rental and Leasing",
	"54": "Professional, Scientific and Technical Services",
	"55": "Management of Companies and Enterprises",
	"56": "Administrative and Support Services",
	"61": "Educational Services",
	"62": "Health Care and Social Assistance",
	"71": "Arts, Entertainment and Recreation",
	"72": "Accommodation and Food Services",
	"81": "Other Services",
	"91": "Public Administration",
}

// IndustryLabel maps a NAICS code of any depth to its sector label.
// Unrecognized codes classify as "Other" and absent codes as
// "Unknown", so the two failure shapes stay distinguishable in the
// data.
func IndustryLabel(naicsCode string) string {
	code := strings.TrimSpace(naicsCode)
	if code == "" {
		return "Unknown"
	}
	if len(code) >= 2 {
		if label, ok := naicsSectors[code[:2]]; ok {
			return label
		}
	}
	return "Other"
}
