package registry

// The keyword registries have no "list all" form, so four term
// families approximate coverage: generic business-name tokens,
// corporate-structure words, place names, and common 3-letter name
// prefixes.

var businessTokens = []string{
	"accounting", "advisors", "agency", "associates", "builders",
	"capital", "centre", "cleaning", "clinic", "consulting",
	"construction", "contracting", "design", "digital", "electric",
	"energy", "engineering", "farms", "financial", "foods", "group",
	"health", "homes", "industries", "landscaping", "logistics",
	"management", "marketing", "mechanical", "media", "medical",
	"motors", "partners", "plumbing", "properties", "realty",
	"services", "solutions", "studio", "systems", "tech", "trading",
	"transport", "ventures",
}

var corporateWords = []string{
	"inc", "incorporated", "ltd", "limited", "corp", "corporation",
	"holdings", "enterprises", "company", "co-op", "cooperative",
	"foundation", "society",
}

var placeNames = []string{
	"toronto", "ottawa", "mississauga", "hamilton", "london",
	"kitchener", "windsor", "vancouver", "victoria", "surrey",
	"kelowna", "calgary", "edmonton", "regina", "saskatoon",
	"winnipeg", "montreal", "quebec", "laval", "gatineau", "moncton",
	"fredericton", "saint john", "halifax", "sydney", "charlottetown",
	"st. john's",
}

var namePrefixes = []string{
	"alb", "atl", "bay", "bel", "blu", "bri", "can", "cap", "ced",
	"cen", "cit", "cle", "con", "cor", "cre", "del", "dom", "eag",
	"eas", "elt", "fir", "for", "gol", "gra", "gre", "har", "hig",
	"hor", "imp", "kin", "lak", "mac", "map", "mar", "mer", "mid",
	"mon", "nat", "new", "nor", "oak", "ont", "pac", "pin", "pre",
	"pro", "que", "red", "riv", "roy", "sil", "sou", "spr", "sta",
	"sun", "tri", "uni", "val", "van", "vic", "wes", "whi", "win",
}

// SearchTerms returns the full deduplicated enumeration vocabulary.
func SearchTerms() []string {
	seen := map[string]bool{}
	var terms []string
	for _, family := range [][]string{
		businessTokens, corporateWords, placeNames, namePrefixes,
	} {
		for _, term := range family {
			if seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}
