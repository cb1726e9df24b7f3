package extract

const (
	maxNameLength            = 200
	minDescriptionLength     = 50
	maxDescriptionParagraphs = 3
)

// stateFields maps lowercased client-state keys to record fields.
var stateFields = map[string]string{
	"name":        "name",
	"companyname": "name",
	"title":       "name",
	"description": "description",
	"about":       "description",
	"industry":    "industry",
	"sector":      "sector",
	"location":    "location",
	"website":     "website",
	"url":         "website",
	"email":       "email",
	"phone":       "phone",
	"founded":     "founded",
	"foundedyear": "founded",
	"employees":   "employees",
	"funding":     "funding",
	"stage":       "stage",
	"tags":        "tags",
}

// labelFields is checked in order; the first keyword contained in a label
// decides the field.
var labelFields = []struct {
	keyword string
	field   string
}{
	{"industry", "industry"},
	{"sector", "sector"},
	{"founded", "founded"},
	{"location", "location"},
	{"website", "website"},
	{"email", "email"},
	{"phone", "phone"},
	{"employees", "employees"},
	{"funding", "funding"},
	{"stage", "stage"},
	{"description", "description"},
	{"about", "description"},
	{"tags", "tags"},
}

// nameSelectors are tried in order; the first selector that yields a name
// ends the search.
var nameSelectors = []string{
	"h1",
	"h2",
	"[class*='company-name']",
	"[class*='startup-name']",
	"[class*='profile-name']",
	".title",
	"[data-testid*='name']",
}
