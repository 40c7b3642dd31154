package importer

import "strings"

type Kind string

const (
	KindProspects  Kind = "prospects"
	KindProperties Kind = "properties"
)

// Field is a canonical import target.
type Field struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

var ProspectFields = []Field{
	{"name", "Name", true},
	{"email", "Email", true},
	{"phone", "Phone", true},
	{"status", "Status", false},
	{"source", "Source", false},
	{"budgetMin", "Budget Min", false},
	{"budgetMax", "Budget Max", false},
	{"bedrooms", "Bedrooms", false},
	{"bathrooms", "Bathrooms", false},
	{"areaMin", "Area Min", false},
	{"areaMax", "Area Max", false},
	{"propertyTypes", "Property Types", false},
	{"locations", "Locations", false},
	{"features", "Features", false},
	{"notes", "Notes", false},
}

var PropertyFields = []Field{
	{"title", "Title", true},
	{"type", "Property Type", true},
	{"price", "Price", true},
	{"location", "Location", true},
	{"area", "Area (m²)", true},
	{"bathrooms", "Bathrooms", true},
	{"bedrooms", "Bedrooms", false},
	{"status", "Status", false},
	{"description", "Description", false},
	{"features", "Features", false},
	{"image1", "Image 1 URL", false},
	{"image2", "Image 2 URL", false},
	{"image3", "Image 3 URL", false},
}

// Mapping maps a canonical field key to the file header that feeds it.
type Mapping map[string]string

type heuristic struct {
	field string
	match func(lower string) bool
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if !strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

var prospectExact = map[string]string{
	"name":           "name",
	"email":          "email",
	"phone":          "phone",
	"status":         "status",
	"source":         "source",
	"budget min":     "budgetMin",
	"budget max":     "budgetMax",
	"bedrooms":       "bedrooms",
	"bathrooms":      "bathrooms",
	"area min":       "areaMin",
	"area max":       "areaMax",
	"property types": "propertyTypes",
	"locations":      "locations",
	"features":       "features",
	"notes":          "notes",
}

// Order matters: a header goes to the first unmapped field it matches.
var prospectHeuristics = []heuristic{
	{"name", func(s string) bool { return strings.Contains(s, "name") || s == "nom" }},
	{"email", containsAny("email", "mail")},
	{"phone", containsAny("phone", "telephone", "tel")},
	{"status", containsAny("status", "statut")},
	{"source", containsAny("source")},
	{"budgetMin", containsAll("budget", "min")},
	{"budgetMax", containsAll("budget", "max")},
	{"bedrooms", containsAny("bedroom", "chambre")},
	{"bathrooms", containsAny("bathroom", "salle")},
	{"areaMin", containsAll("area", "min")},
	{"areaMax", containsAll("area", "max")},
	{"propertyTypes", containsAll("property", "type")},
	{"locations", containsAny("location", "lieu")},
	{"features", containsAny("feature", "caractéristique")},
	{"notes", containsAny("note")},
}

var propertyExact = map[string]string{
	"title":       "title",
	"type":        "type",
	"price":       "price",
	"location":    "location",
	"area":        "area",
	"bathrooms":   "bathrooms",
	"bedrooms":    "bedrooms",
	"status":      "status",
	"description": "description",
	"features":    "features",
}

var propertyHeuristics = []heuristic{
	{"title", func(s string) bool { return strings.Contains(s, "title") || strings.Contains(s, "name") || s == "nom" }},
	{"type", containsAny("type", "category")},
	{"price", containsAny("price", "prix", "cost")},
	{"location", containsAny("location", "address", "lieu")},
	{"area", containsAny("area", "surface", "size")},
	{"bathrooms", containsAny("bathroom", "salle")},
	{"bedrooms", containsAny("bedroom", "chambre")},
	{"status", containsAny("status", "statut")},
	{"description", containsAny("description")},
	{"features", containsAny("feature", "amenity")},
	{"image1", containsAny("image1", "photo1")},
	{"image2", containsAny("image2", "photo2")},
	{"image3", containsAny("image3", "photo3")},
}

func AutoMapProspects(headers []string) Mapping {
	return autoMap(headers, prospectExact, prospectHeuristics)
}

func AutoMapProperties(headers []string) Mapping {
	return autoMap(headers, propertyExact, propertyHeuristics)
}

// AutoMap dispatches on kind.
func AutoMap(kind Kind, headers []string) Mapping {
	if kind == KindProperties {
		return AutoMapProperties(headers)
	}
	return AutoMapProspects(headers)
}

// autoMap assigns each header to at most one field. An exact,
// case-insensitive name always wins, otherwise the header goes to the first
// still-unmapped field whose heuristic matches.
func autoMap(headers []string, exact map[string]string, heuristics []heuristic) Mapping {
	m := Mapping{}
	for _, header := range headers {
		lower := strings.ToLower(strings.TrimSpace(header))
		if field, ok := exact[lower]; ok {
			m[field] = header
			continue
		}
		for _, h := range heuristics {
			if _, taken := m[h.field]; taken {
				continue
			}
			if h.match(lower) {
				m[h.field] = header
				break
			}
		}
	}
	return m
}

// Sanitize drops entries that point at headers the table does not have or at
// unknown fields.
func (m Mapping) Sanitize(kind Kind, headers []string) Mapping {
	fields := ProspectFields
	if kind == KindProperties {
		fields = PropertyFields
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Key] = true
	}
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	out := Mapping{}
	for field, header := range m {
		if known[field] && present[header] {
			out[field] = header
		}
	}
	return out
}
